package activity

import (
	"net/http"

	"carcare-dispatch/internal/models"

	"github.com/labstack/echo/v4"
)

// Handler serves the per-request audit timeline.
type Handler struct {
	log *Log
}

// NewHandler constructs a Handler over the activity log.
func NewHandler(log *Log) *Handler {
	return &Handler{log: log}
}

// GetHistory handles GET /requests/:requestId/history.
func (h *Handler) GetHistory(c echo.Context) error {
	events, err := h.log.History(c.Request().Context(), c.Param("requestId"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to load history"})
	}
	if events == nil {
		events = []models.RequestEvent{}
	}
	return c.JSON(http.StatusOK, events)
}
