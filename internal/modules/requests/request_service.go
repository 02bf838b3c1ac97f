package requests

import (
	"context"
	"fmt"
	"time"

	"carcare-dispatch/internal/models"
	"carcare-dispatch/internal/modules/availability"
	"carcare-dispatch/internal/modules/matching"
	"carcare-dispatch/pkg/geo"

	"github.com/google/uuid"
)

// allowedTransitions is the lifecycle edge table. Any (from, to) pair not
// listed here is rejected. completed and cancelled have no outgoing edges.
var allowedTransitions = map[models.RequestStatus][]models.RequestStatus{
	models.StatusPending:        {models.StatusClaimed, models.StatusCancelled},
	models.StatusClaimed:        {models.StatusDiagnosed, models.StatusCancelled},
	models.StatusDiagnosed:      {models.StatusQuoted, models.StatusCancelled},
	models.StatusQuoted:         {models.StatusApproved, models.StatusCancelled},
	models.StatusApproved:       {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress:     {models.StatusPartsRequested, models.StatusCompleted, models.StatusCancelled},
	models.StatusPartsRequested: {models.StatusPartsReceived, models.StatusCancelled},
	models.StatusPartsReceived:  {models.StatusCompleted, models.StatusCancelled},
}

func transitionAllowed(from, to models.RequestStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EventSink consumes lifecycle domain events. Implementations include the
// notification fan-out and the activity log; the service never blocks on
// either.
type EventSink interface {
	HandleRequestEvent(ctx context.Context, ev models.RequestEvent)
}

// ChatNotifier is called once per request, when a mechanic is assigned, so
// the chat collaborator can open the owner/mechanic thread. No chat logic
// lives here.
type ChatNotifier interface {
	ThreadOpened(ctx context.Context, requestID, ownerID, mechanicID string)
}

// ServiceInterface is the request lifecycle: creation, exclusive claim and
// table-validated transitions.
type ServiceInterface interface {
	Create(ctx context.Context, ownerID string, req models.CreateRequestRequest) (*models.Request, []models.LocationBasedRequestMatch, error)
	GetForActor(ctx context.Context, requestID, actorID string) (*models.Request, error)
	ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]*models.Request, int, error)
	ListByMechanic(ctx context.Context, mechanicID string, page, limit int) ([]*models.Request, int, error)
	// Claim gives the mechanic exclusive ownership of a pending request.
	// Exactly one of N concurrent claimants succeeds.
	Claim(ctx context.Context, requestID, mechanicID string) (*models.Request, error)
	// Transition applies one edge of the lifecycle table on behalf of actorID.
	Transition(ctx context.Context, requestID string, newStatus models.RequestStatus, actorID string) (*models.Request, error)
}

// Service implements the request lifecycle.
type Service struct {
	repo     RepositoryInterface
	registry availability.ServiceInterface
	matcher  matching.ServiceInterface
	sinks    []EventSink
	chat     ChatNotifier
	now      func() time.Time
}

// NewService wires the lifecycle to its collaborators. sinks and chat may be
// empty/nil in tests.
func NewService(repo RepositoryInterface, registry availability.ServiceInterface, matcher matching.ServiceInterface, chat ChatNotifier, sinks ...EventSink) *Service {
	return &Service{
		repo:     repo,
		registry: registry,
		matcher:  matcher,
		sinks:    sinks,
		chat:     chat,
		now:      time.Now,
	}
}

// Create persists a new pending request and runs the dispatch pipeline:
// candidates are found, ranked and announced to the notification
// collaborator. The ranked list is returned so the caller can show it.
func (s *Service) Create(ctx context.Context, ownerID string, req models.CreateRequestRequest) (*models.Request, []models.LocationBasedRequestMatch, error) {
	if !geo.IsValid(req.Location) {
		return nil, nil, models.ErrInvalidCoordinates
	}

	request := &models.Request{
		ID:             uuid.New().String(),
		CarID:          req.CarID,
		OwnerID:        ownerID,
		Location:       req.Location,
		Specialization: req.Specialization,
		Description:    req.Description,
		Urgency:        req.Urgency,
		Status:         models.StatusPending,
	}
	stored, err := s.repo.Create(ctx, request)
	if err != nil {
		return nil, nil, fmt.Errorf("service.Create: %w", err)
	}

	var matches []models.LocationBasedRequestMatch
	if s.matcher != nil {
		// A dispatch failure must not fail creation; the request stays
		// pending and can be re-matched via POST /match.
		matches, err = s.matcher.MatchForRequest(ctx, stored, 0)
		if err != nil {
			matches = nil
		}
	}
	return stored, matches, nil
}

// GetForActor fetches a request visible to the actor: its owner or its
// assigned mechanic. Anyone else gets NotFound rather than a hint that the
// request exists.
func (s *Service) GetForActor(ctx context.Context, requestID, actorID string) (*models.Request, error) {
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.OwnerID != actorID && (!request.MechanicID.Valid || request.MechanicID.String != actorID) {
		return nil, models.ErrNotFound
	}
	return request, nil
}

// ListByOwner returns the owner's requests, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]*models.Request, int, error) {
	page, limit = clampPage(page, limit)
	return s.repo.ListByOwner(ctx, ownerID, page, limit)
}

// ListByMechanic returns the requests assigned to a mechanic.
func (s *Service) ListByMechanic(ctx context.Context, mechanicID string, page, limit int) ([]*models.Request, int, error) {
	page, limit = clampPage(page, limit)
	return s.repo.ListByMechanic(ctx, mechanicID, page, limit)
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// Claim reserves a capacity slot and then performs the exclusive
// compare-and-set on the request. If the CAS loses the race the reserved
// slot is returned immediately, so no failure path leaves a dangling
// reservation. Event fan-out happens only after the claim is committed.
func (s *Service) Claim(ctx context.Context, requestID, mechanicID string) (*models.Request, error) {
	current, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.StatusPending {
		return nil, models.ErrAlreadyClaimed
	}

	// Capacity first: a mechanic at max_concurrent_jobs should fail fast
	// without touching the request row.
	if err := s.registry.ReserveSlot(ctx, mechanicID); err != nil {
		return nil, err
	}

	claimed, err := s.repo.ClaimCAS(ctx, requestID, mechanicID)
	if err != nil {
		// Hand the slot back; the claim never happened.
		if relErr := s.registry.ReleaseSlot(ctx, mechanicID); relErr != nil {
			return nil, fmt.Errorf("service.Claim: release after lost claim: %v: %w", relErr, err)
		}
		return nil, err
	}

	s.emit(ctx, models.RequestEvent{
		RequestID: claimed.ID,
		From:      models.StatusPending,
		To:        models.StatusClaimed,
		ActorID:   mechanicID,
		Timestamp: s.now().UTC(),
	})
	if s.chat != nil {
		go s.chat.ThreadOpened(context.WithoutCancel(ctx), claimed.ID, claimed.OwnerID, mechanicID)
	}
	return claimed, nil
}

// Transition validates the edge and the actor, applies the CAS update, and
// on a terminal state releases the mechanic's slot exactly once.
func (s *Service) Transition(ctx context.Context, requestID string, newStatus models.RequestStatus, actorID string) (*models.Request, error) {
	current, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if newStatus == models.StatusClaimed {
		// Claiming is a separate, capacity-aware operation.
		return nil, models.ErrInvalidTransition
	}
	if !transitionAllowed(current.Status, newStatus) {
		return nil, models.ErrInvalidTransition
	}
	if err := s.authorizeTransition(current, newStatus, actorID); err != nil {
		return nil, err
	}

	updated, err := s.repo.TransitionCAS(ctx, requestID, current.Status, newStatus)
	if err != nil {
		return nil, err
	}

	if newStatus.IsTerminal() && updated.MechanicID.Valid {
		first, err := s.repo.MarkSlotReleased(ctx, requestID)
		if err != nil {
			return nil, fmt.Errorf("service.Transition: %w", err)
		}
		if first {
			if err := s.registry.ReleaseSlot(ctx, updated.MechanicID.String); err != nil {
				return nil, fmt.Errorf("service.Transition: release slot: %w", err)
			}
		}
	}

	s.emit(ctx, models.RequestEvent{
		RequestID: updated.ID,
		From:      current.Status,
		To:        newStatus,
		ActorID:   actorID,
		Timestamp: s.now().UTC(),
	})
	return updated, nil
}

// authorizeTransition enforces who may move the request: the assigned
// mechanic drives the happy path; the owner may only cancel.
func (s *Service) authorizeTransition(current *models.Request, newStatus models.RequestStatus, actorID string) error {
	if newStatus == models.StatusCancelled {
		if actorID == current.OwnerID {
			return nil
		}
		if current.MechanicID.Valid && current.MechanicID.String == actorID {
			return nil
		}
		return models.ErrForbidden
	}
	if !current.MechanicID.Valid || current.MechanicID.String != actorID {
		return models.ErrForbidden
	}
	return nil
}

// emit fans the event out to every sink without blocking the caller. Sinks
// run after the state mutation has committed, never under a lock.
func (s *Service) emit(ctx context.Context, ev models.RequestEvent) {
	detached := context.WithoutCancel(ctx)
	for _, sink := range s.sinks {
		go sink.HandleRequestEvent(detached, ev)
	}
}
