package location

import (
	"context"

	"carcare-dispatch/internal/models"
)

// UnavailableProvider is the PositionProvider used when the deployment has no
// device bridge. Every position request fails with a non-retriable
// service-unavailable error so callers fall back to manual address entry.
type UnavailableProvider struct{}

func (UnavailableProvider) CurrentPosition(ctx context.Context, highAccuracy bool) (models.Coordinates, error) {
	return models.Coordinates{}, &models.LocationError{
		Kind:    models.LocServiceUnavailable,
		Message: "no device position source configured",
	}
}

func (UnavailableProvider) PermissionStatus(ctx context.Context) models.PermissionStatus {
	return models.PermissionUnavailable
}
