package location

import (
	"context"
	"errors"
	"strings"
	"time"

	"carcare-dispatch/internal/models"
	"carcare-dispatch/pkg/geo"
)

// Defaults for the position acquisition loop when the caller leaves the
// config fields zero.
const (
	defaultTimeout    = 10 * time.Second
	defaultRetryDelay = time.Second
	defaultRetries    = 2

	// maxSearchResults caps what SearchAddresses surfaces to callers. The
	// 500ms input debounce that bounds collaborator call volume is a caller
	// contract, documented on the endpoint, not enforced here.
	maxSearchResults = 5
)

// PositionProvider is the platform/device location collaborator. Failures
// are reported as *models.LocationError values.
type PositionProvider interface {
	CurrentPosition(ctx context.Context, highAccuracy bool) (models.Coordinates, error)
	PermissionStatus(ctx context.Context) models.PermissionStatus
}

// Geocoder is the external address resolution collaborator.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, c models.Coordinates) (*models.Address, error)
	SearchAddresses(ctx context.Context, query string, bias *models.Coordinates, limit int) ([]models.LocationSearchResult, error)
}

// ServiceInterface is the location service contract.
type ServiceInterface interface {
	// RequestLocation acquires a device position, retrying transient
	// failures. Permission denial is terminal and never retried.
	RequestLocation(ctx context.Context, cfg models.RequestLocationConfig) (models.Coordinates, error)
	// ReverseGeocode resolves coordinates to an address. The (0,0) sentinel
	// fails fast without touching the collaborator.
	ReverseGeocode(ctx context.Context, c models.Coordinates) (*models.Address, error)
	// SearchAddresses returns at most five suggestions for the query.
	SearchAddresses(ctx context.Context, req models.SearchAddressesRequest) ([]models.LocationSearchResult, error)
	// PermissionStatus is read-only and cheap to poll.
	PermissionStatus(ctx context.Context) models.PermissionStatus
}

// Service implements ServiceInterface.
type Service struct {
	provider PositionProvider
	geocoder Geocoder
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewService creates a location service over the given collaborators.
func NewService(provider PositionProvider, geocoder Geocoder) *Service {
	return &Service{provider: provider, geocoder: geocoder, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestLocation runs the attempt loop: one initial try plus RetryAttempts
// retries with RetryDelayMs between them. Only transient kinds (timeout,
// network, position unavailable) are retried; once attempts are exhausted
// the last error is returned as-is.
func (s *Service) RequestLocation(ctx context.Context, cfg models.RequestLocationConfig) (models.Coordinates, error) {
	timeout := defaultTimeout
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	retries := defaultRetries
	if cfg.RetryAttempts > 0 {
		retries = cfg.RetryAttempts
	}
	delay := defaultRetryDelay
	if cfg.RetryDelayMs > 0 {
		delay = time.Duration(cfg.RetryDelayMs) * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, delay); err != nil {
				return models.Coordinates{}, lastErr
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		pos, err := s.provider.CurrentPosition(attemptCtx, cfg.EnableHighAccuracy)
		cancel()
		if err == nil {
			if !geo.IsValid(pos) {
				lastErr = &models.LocationError{Kind: models.LocPositionUnavailable, Message: "provider returned an unusable fix"}
				continue
			}
			return pos, nil
		}

		lastErr = classify(err)
		var locErr *models.LocationError
		if errors.As(lastErr, &locErr) && !locErr.Kind.Retriable() {
			// PERMISSION_DENIED and friends: zero further attempts.
			return models.Coordinates{}, lastErr
		}
	}
	return models.Coordinates{}, lastErr
}

// classify folds context errors into the timeout kind so callers always see
// a LocationError.
func classify(err error) error {
	var locErr *models.LocationError
	if errors.As(err, &locErr) {
		return locErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &models.LocationError{Kind: models.LocTimeout, Message: "position request timed out"}
	}
	return &models.LocationError{Kind: models.LocNetworkError, Message: err.Error()}
}

// ReverseGeocode validates first: the reserved (0,0) sentinel and any
// out-of-range pair fail before the collaborator is called.
func (s *Service) ReverseGeocode(ctx context.Context, c models.Coordinates) (*models.Address, error) {
	if !geo.IsValid(c) {
		return nil, models.ErrInvalidCoordinates
	}
	if s.geocoder == nil {
		return nil, &models.LocationError{Kind: models.LocServiceUnavailable, Message: "no geocoder configured"}
	}
	addr, err := s.geocoder.ReverseGeocode(ctx, c)
	if err != nil {
		var locErr *models.LocationError
		if errors.As(err, &locErr) {
			return nil, locErr
		}
		return nil, &models.LocationError{Kind: models.LocServiceUnavailable, Message: err.Error()}
	}
	return addr, nil
}

// SearchAddresses forwards the query to the geocoder, capped at five results.
func (s *Service) SearchAddresses(ctx context.Context, req models.SearchAddressesRequest) ([]models.LocationSearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return []models.LocationSearchResult{}, nil
	}
	if s.geocoder == nil {
		return nil, &models.LocationError{Kind: models.LocServiceUnavailable, Message: "no geocoder configured"}
	}
	results, err := s.geocoder.SearchAddresses(ctx, query, req.Bias, maxSearchResults)
	if err != nil {
		return nil, &models.LocationError{Kind: models.LocServiceUnavailable, Message: err.Error()}
	}
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}
	return results, nil
}

// PermissionStatus reports the platform permission state without side
// effects.
func (s *Service) PermissionStatus(ctx context.Context) models.PermissionStatus {
	if s.provider == nil {
		return models.PermissionUnavailable
	}
	return s.provider.PermissionStatus(ctx)
}
