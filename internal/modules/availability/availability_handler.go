package availability

import (
	"net/http"

	"carcare-dispatch/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Handler exposes the availability registry over HTTP.
type Handler struct {
	svc      ServiceInterface
	validate *validator.Validate
}

// NewHandler constructs a Handler with the provided service.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// UpsertMyAvailability handles PUT /mechanics/me/availability. The mechanic
// id comes from the verified JWT, never from the body.
func (h *Handler) UpsertMyAvailability(c echo.Context) error {
	mechanicID, _ := c.Get("userID").(string)

	var req models.UpsertAvailabilityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
	}

	profile, err := h.svc.Upsert(c.Request().Context(), mechanicID, req)
	if err != nil {
		switch err {
		case models.ErrInvalidCoordinates:
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "base location coordinates are invalid"})
		case models.ErrInvalidState:
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "max concurrent jobs is below current active jobs"})
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to update availability"})
	}
	return c.JSON(http.StatusOK, profile)
}

// GetMyAvailability handles GET /mechanics/me/availability.
func (h *Handler) GetMyAvailability(c echo.Context) error {
	mechanicID, _ := c.Get("userID").(string)

	profile, err := h.svc.GetByMechanicID(c.Request().Context(), mechanicID)
	if err != nil {
		if err == models.ErrNotFound {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "no availability profile yet"})
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to load availability"})
	}
	return c.JSON(http.StatusOK, profile)
}
