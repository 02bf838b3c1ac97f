// Package events publishes dispatch domain events to a RabbitMQ topic
// exchange. Downstream consumers (push notification workers, the parts-dealer
// portal) bind their own queues; this side only ever publishes.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"carcare-dispatch/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

const exchange = "carcare.dispatch"

// Publisher is an AMQP publisher for lifecycle events and match
// announcements.
type Publisher struct {
	url  string
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher connects to the broker and declares the topic exchange.
func NewPublisher(url string) (*Publisher, error) {
	p := &Publisher{url: url}
	if err := p.connect(); err != nil {
		return nil, fmt.Errorf("events.NewPublisher: %w", err)
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return err
	}
	p.conn = conn
	p.ch = ch
	return nil
}

// publishJSON serializes v and publishes it under the routing key, redialing
// once if the connection went away.
func (p *Publisher) publishJSON(ctx context.Context, routingKey string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("events.publishJSON marshal: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		if err := p.connect(); err != nil {
			return fmt.Errorf("events.publishJSON reconnect: %w", err)
		}
	}
	return p.ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// HandleRequestEvent publishes a lifecycle event under
// request.status.<new-status>. Failures are logged, never propagated: the
// state change has already committed.
func (p *Publisher) HandleRequestEvent(ctx context.Context, ev models.RequestEvent) {
	key := fmt.Sprintf("request.status.%s", ev.To)
	if err := p.publishJSON(ctx, key, ev); err != nil {
		log.Printf("events: failed to publish %s for request %s: %v", key, ev.RequestID, err)
	}
}

// AnnounceMatches publishes the ranked mechanic list for a new request under
// request.match.<urgency>.
func (p *Publisher) AnnounceMatches(ctx context.Context, ann models.MatchAnnouncement) {
	key := fmt.Sprintf("request.match.%s", ann.Urgency)
	if err := p.publishJSON(ctx, key, ann); err != nil {
		log.Printf("events: failed to publish %s for request %s: %v", key, ann.RequestID, err)
	}
}

// ThreadOpened tells the chat collaborator to open the owner/mechanic
// conversation for a freshly claimed request.
func (p *Publisher) ThreadOpened(ctx context.Context, requestID, ownerID, mechanicID string) {
	payload := map[string]string{
		"request_id":  requestID,
		"owner_id":    ownerID,
		"mechanic_id": mechanicID,
	}
	if err := p.publishJSON(ctx, "request.chat.opened", payload); err != nil {
		log.Printf("events: failed to publish chat thread for request %s: %v", requestID, err)
	}
}

// Close shuts down the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		if err := p.ch.Close(); err != nil {
			return fmt.Errorf("events.Close channel: %w", err)
		}
	}
	if p.conn != nil && !p.conn.IsClosed() {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("events.Close connection: %w", err)
		}
	}
	return nil
}
