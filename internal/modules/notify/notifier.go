// Package notify fans dispatch events out to the notification collaborators:
// the message broker for push/portal consumers and, for the cases a human
// dispatcher cares about, the SES email channel.
package notify

import (
	"context"
	"fmt"
	"log"

	"carcare-dispatch/internal/models"
	"carcare-dispatch/pkg/email"
)

// EventPublisher is the broker side of the fan-out, satisfied by
// events.Publisher.
type EventPublisher interface {
	HandleRequestEvent(ctx context.Context, ev models.RequestEvent)
	AnnounceMatches(ctx context.Context, ann models.MatchAnnouncement)
}

// Notifier publishes every event to the broker and mirrors the
// dispatcher-relevant ones to email. All delivery is best-effort; the
// lifecycle never waits on it.
type Notifier struct {
	bus          EventPublisher
	mailer       email.SenderInterface
	templates    *email.TemplateManager
	dispatchDesk string
}

// NewNotifier wires the fan-out. mailer may be nil when email is not
// configured; the broker path still runs.
func NewNotifier(bus EventPublisher, mailer email.SenderInterface, templates *email.TemplateManager, dispatchDesk string) *Notifier {
	return &Notifier{bus: bus, mailer: mailer, templates: templates, dispatchDesk: dispatchDesk}
}

// AnnounceMatches forwards the ranked list to the broker and emails the
// dispatch desk a digest for high-urgency requests.
func (n *Notifier) AnnounceMatches(ctx context.Context, ann models.MatchAnnouncement) {
	if n.bus != nil {
		n.bus.AnnounceMatches(ctx, ann)
	}

	if n.mailer == nil || ann.Urgency != models.UrgencyHigh {
		return
	}
	ids := ann.RankedMechanicIDs
	if len(ids) > 5 {
		ids = ids[:5]
	}
	html, err := n.templates.GenerateUrgentDigestHTML(email.UrgentDigestData{
		RequestID:   ann.RequestID,
		MechanicIDs: ids,
	})
	if err != nil {
		log.Printf("notify: digest template failed for request %s: %v", ann.RequestID, err)
		return
	}
	subject := fmt.Sprintf("Urgent request %s: %d mechanics notified", ann.RequestID, len(ann.RankedMechanicIDs))
	plain := fmt.Sprintf("High-urgency request %s was announced to %d mechanics.", ann.RequestID, len(ann.RankedMechanicIDs))
	if err := n.mailer.SendEmail(ctx, n.dispatchDesk, subject, plain, html); err != nil {
		log.Printf("notify: digest email failed for request %s: %v", ann.RequestID, err)
	}
}

// HandleRequestEvent forwards the event to the broker and emails the
// dispatch desk when a request is claimed.
func (n *Notifier) HandleRequestEvent(ctx context.Context, ev models.RequestEvent) {
	if n.bus != nil {
		n.bus.HandleRequestEvent(ctx, ev)
	}

	if n.mailer == nil || ev.To != models.StatusClaimed {
		return
	}
	html, err := n.templates.GenerateClaimNoticeHTML(email.ClaimNoticeData{
		RequestID:  ev.RequestID,
		MechanicID: ev.ActorID,
		Status:     string(ev.To),
	})
	if err != nil {
		log.Printf("notify: claim template failed for request %s: %v", ev.RequestID, err)
		return
	}
	subject := fmt.Sprintf("Request %s claimed by %s", ev.RequestID, ev.ActorID)
	plain := fmt.Sprintf("Request %s moved from %s to %s by %s.", ev.RequestID, ev.From, ev.To, ev.ActorID)
	if err := n.mailer.SendEmail(ctx, n.dispatchDesk, subject, plain, html); err != nil {
		log.Printf("notify: claim email failed for request %s: %v", ev.RequestID, err)
	}
}
