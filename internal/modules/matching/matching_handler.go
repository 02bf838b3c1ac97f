package matching

import (
	"context"
	"errors"
	"net/http"

	"carcare-dispatch/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestLoader is the slice of the request repository the match endpoint
// needs. Satisfied by the requests module's repository.
type RequestLoader interface {
	FindByID(ctx context.Context, requestID string) (*models.Request, error)
}

// Handler exposes the matching engine over HTTP.
type Handler struct {
	svc      ServiceInterface
	requests RequestLoader
	validate *validator.Validate
}

// NewHandler constructs a matching handler.
func NewHandler(svc ServiceInterface, requests RequestLoader) *Handler {
	return &Handler{svc: svc, requests: requests, validate: validator.New()}
}

// Match handles POST /match: re-run the dispatch ranking for an existing
// request and return the ordered candidate list.
func (h *Handler) Match(c echo.Context) error {
	var req models.MatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
	}

	request, err := h.requests.FindByID(c.Request().Context(), req.RequestID)
	if err != nil {
		if err == models.ErrNotFound {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to load request"})
	}

	matches, err := h.svc.MatchForRequest(c.Request().Context(), request, req.MaxRadiusKm)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCoordinates) {
			return c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Message: "request has no usable location"})
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to rank mechanics"})
	}
	return c.JSON(http.StatusOK, matches)
}
