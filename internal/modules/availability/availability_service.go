package availability

import (
	"context"
	"fmt"
	"time"

	"carcare-dispatch/internal/models"
	"carcare-dispatch/pkg/geo"
)

// ServiceInterface is the availability registry: it answers "who is eligible
// near X" and guards the only legal mutations of current_active_jobs.
type ServiceInterface interface {
	// Upsert replaces a mechanic's profile wholesale after validating it
	// against the jobs-in-flight invariant.
	Upsert(ctx context.Context, mechanicID string, req models.UpsertAvailabilityRequest) (*models.MechanicAvailability, error)
	// GetByMechanicID returns one mechanic's profile.
	GetByMechanicID(ctx context.Context, mechanicID string) (*models.MechanicAvailability, error)
	// FindCandidates returns mechanics eligible for a request at origin.
	// Ordering is unspecified; the matching engine re-ranks.
	FindCandidates(ctx context.Context, origin models.Coordinates, maxRadiusKm float64, requiredSpecializations []string) ([]*models.MechanicAvailability, error)
	// ReserveSlot and ReleaseSlot are called exclusively by the request
	// lifecycle on claim and on terminal transitions.
	ReserveSlot(ctx context.Context, mechanicID string) error
	ReleaseSlot(ctx context.Context, mechanicID string) error
}

// Service implements ServiceInterface.
type Service struct {
	repo RepositoryInterface
	now  func() time.Time
}

// NewService creates the availability registry service.
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Upsert validates and replaces the stored profile. If the mechanic already
// has more jobs in flight than the new max_concurrent_jobs would allow, the
// update is rejected so current <= max always holds.
func (s *Service) Upsert(ctx context.Context, mechanicID string, req models.UpsertAvailabilityRequest) (*models.MechanicAvailability, error) {
	if !geo.IsValid(req.BaseLocation.Coordinates) {
		return nil, models.ErrInvalidCoordinates
	}

	existing, err := s.repo.FindByMechanicID(ctx, mechanicID)
	if err != nil && err != models.ErrNotFound {
		return nil, fmt.Errorf("service.Upsert: %w", err)
	}
	if existing != nil && existing.CurrentActiveJobs > req.MaxConcurrentJobs {
		return nil, models.ErrInvalidState
	}

	profile := &models.MechanicAvailability{
		MechanicID:        mechanicID,
		IsAvailable:       req.IsAvailable,
		MaxConcurrentJobs: req.MaxConcurrentJobs,
		BaseLocation:      req.BaseLocation,
		ServiceRadiusKm:   req.ServiceRadiusKm,
		Specializations:   req.Specializations,
		HourlyRate:        req.HourlyRate,
		EmergencyService:  req.EmergencyService,
		WorkingHours:      req.WorkingHours,
	}
	if existing != nil {
		profile.Rating = existing.Rating
	}

	stored, err := s.repo.Upsert(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("service.Upsert: %w", err)
	}
	return stored, nil
}

// GetByMechanicID fetches one mechanic's profile.
func (s *Service) GetByMechanicID(ctx context.Context, mechanicID string) (*models.MechanicAvailability, error) {
	return s.repo.FindByMechanicID(ctx, mechanicID)
}

// FindCandidates filters the open mechanics down to those in range with the
// required specializations. A mechanic's reach is the tighter of the caller's
// radius and their own service radius. Mechanics outside their working hours
// are skipped unless they run an emergency service.
func (s *Service) FindCandidates(ctx context.Context, origin models.Coordinates, maxRadiusKm float64, requiredSpecializations []string) ([]*models.MechanicAvailability, error) {
	if !geo.IsValid(origin) {
		return nil, models.ErrInvalidCoordinates
	}

	open, err := s.repo.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.FindCandidates: %w", err)
	}

	now := s.now()
	var candidates []*models.MechanicAvailability
	for _, m := range open {
		reach := m.ServiceRadiusKm
		if maxRadiusKm > 0 && maxRadiusKm < reach {
			reach = maxRadiusKm
		}
		if geo.DistanceKm(origin, m.BaseLocation.Coordinates) > reach {
			continue
		}
		if !m.HasSpecializations(requiredSpecializations) {
			continue
		}
		if !m.EmergencyService && !m.WorkingHours.WithinWorkingHours(now) {
			continue
		}
		candidates = append(candidates, m)
	}
	return candidates, nil
}

// ReserveSlot takes one unit of the mechanic's capacity.
func (s *Service) ReserveSlot(ctx context.Context, mechanicID string) error {
	return s.repo.ReserveSlot(ctx, mechanicID)
}

// ReleaseSlot returns one unit of the mechanic's capacity.
func (s *Service) ReleaseSlot(ctx context.Context, mechanicID string) error {
	return s.repo.ReleaseSlot(ctx, mechanicID)
}
