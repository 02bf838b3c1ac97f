package location

import (
	"errors"
	"net/http"

	"carcare-dispatch/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Handler exposes location operations over HTTP.
type Handler struct {
	svc      ServiceInterface
	validate *validator.Validate
}

// NewHandler constructs a Handler with the provided service.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// RequestPosition handles POST /location/position.
func (h *Handler) RequestPosition(c echo.Context) error {
	var cfg models.RequestLocationConfig
	if err := c.Bind(&cfg); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
	}
	if err := h.validate.Struct(cfg); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
	}

	pos, err := h.svc.RequestLocation(c.Request().Context(), cfg)
	if err != nil {
		var locErr *models.LocationError
		if errors.As(err, &locErr) {
			status := http.StatusServiceUnavailable
			if locErr.Kind == models.LocPermissionDenied {
				status = http.StatusForbidden
			}
			return c.JSON(status, locErr)
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to acquire position"})
	}
	return c.JSON(http.StatusOK, pos)
}

// ReverseGeocode handles POST /location/reverse-geocode.
func (h *Handler) ReverseGeocode(c echo.Context) error {
	var coords models.Coordinates
	if err := c.Bind(&coords); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
	}

	addr, err := h.svc.ReverseGeocode(c.Request().Context(), coords)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCoordinates) {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "coordinates are invalid"})
		}
		var locErr *models.LocationError
		if errors.As(err, &locErr) {
			return c.JSON(http.StatusServiceUnavailable, locErr)
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to resolve address"})
	}
	return c.JSON(http.StatusOK, addr)
}

// SearchAddresses handles POST /location/search. Clients are expected to
// debounce keystrokes by at least 500ms before calling.
func (h *Handler) SearchAddresses(c echo.Context) error {
	var req models.SearchAddressesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
	}

	results, err := h.svc.SearchAddresses(c.Request().Context(), req)
	if err != nil {
		var locErr *models.LocationError
		if errors.As(err, &locErr) {
			return c.JSON(http.StatusServiceUnavailable, locErr)
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "address search failed"})
	}
	return c.JSON(http.StatusOK, results)
}

// GetPermissionStatus handles GET /location/permission.
func (h *Handler) GetPermissionStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]models.PermissionStatus{
		"status": h.svc.PermissionStatus(c.Request().Context()),
	})
}
