package requests

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"carcare-dispatch/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// upgrader is used to upgrade HTTP connections to WebSocket connections for
// the live status stream.
var upgrader = websocket.Upgrader{}

// Handler exposes the request lifecycle over HTTP.
type Handler struct {
	svc      ServiceInterface
	validate *validator.Validate
}

// NewHandler constructs a Handler with the provided service.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// CreateRequest handles POST /requests. The response carries the stored
// request plus the ranked mechanics the dispatch run produced.
func (h *Handler) CreateRequest(c echo.Context) error {
	ownerID, _ := c.Get("userID").(string)

	var req models.CreateRequestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
	}

	request, matches, err := h.svc.Create(c.Request().Context(), ownerID, req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCoordinates) {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "location coordinates are invalid"})
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to create request"})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"request": request,
		"matches": matches,
	})
}

// GetRequest handles GET /requests/:requestId.
func (h *Handler) GetRequest(c echo.Context) error {
	actorID, _ := c.Get("userID").(string)

	request, err := h.svc.GetForActor(c.Request().Context(), c.Param("requestId"), actorID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to load request"})
	}
	return c.JSON(http.StatusOK, request)
}

// ListMyRequests handles GET /requests: owners see the requests they opened,
// mechanics see the requests assigned to them.
func (h *Handler) ListMyRequests(c echo.Context) error {
	actorID, _ := c.Get("userID").(string)
	role, _ := c.Get("userRole").(string)
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	var (
		list  []*models.Request
		total int
		err   error
	)
	if role == models.RoleMechanic {
		list, total, err = h.svc.ListByMechanic(c.Request().Context(), actorID, page, limit)
	} else {
		list, total, err = h.svc.ListByOwner(c.Request().Context(), actorID, page, limit)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to list requests"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"requests": list, "total": total})
}

// ClaimRequest handles POST /requests/:requestId/claim. Mechanic-only.
func (h *Handler) ClaimRequest(c echo.Context) error {
	mechanicID, _ := c.Get("userID").(string)

	request, err := h.svc.Claim(c.Request().Context(), c.Param("requestId"), mechanicID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "request not found"})
		case errors.Is(err, models.ErrAlreadyClaimed):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "request has already been claimed"})
		case errors.Is(err, models.ErrCapacityExceeded):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "you are at your concurrent job limit"})
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to claim request"})
	}
	return c.JSON(http.StatusOK, request)
}

// TransitionRequest handles POST /requests/:requestId/transition.
func (h *Handler) TransitionRequest(c echo.Context) error {
	actorID, _ := c.Get("userID").(string)

	var req models.TransitionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
	}

	request, err := h.svc.Transition(c.Request().Context(), c.Param("requestId"), req.Status, actorID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "request not found"})
		case errors.Is(err, models.ErrInvalidTransition):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "that status change is not allowed"})
		case errors.Is(err, models.ErrForbidden):
			return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "you may not change this request"})
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to update request"})
	}
	return c.JSON(http.StatusOK, request)
}

// CancelRequest handles PUT /requests/:requestId/cancel as a shorthand for a
// transition to cancelled.
func (h *Handler) CancelRequest(c echo.Context) error {
	actorID, _ := c.Get("userID").(string)

	request, err := h.svc.Transition(c.Request().Context(), c.Param("requestId"), models.StatusCancelled, actorID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "request not found"})
		case errors.Is(err, models.ErrInvalidTransition):
			return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "request can no longer be cancelled"})
		case errors.Is(err, models.ErrForbidden):
			return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "you may not cancel this request"})
		}
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "failed to cancel request"})
	}
	return c.JSON(http.StatusOK, request)
}

// statusFrame is one message on the live status stream.
type statusFrame struct {
	RequestID  string               `json:"request_id"`
	Status     models.RequestStatus `json:"status"`
	MechanicID string               `json:"mechanic_id,omitempty"`
	ObservedAt time.Time            `json:"observed_at"`
}

// HandleTrack upgrades to a WebSocket and streams the request's status until
// it reaches a terminal state or the client goes away.
func (h *Handler) HandleTrack(c echo.Context) error {
	actorID, _ := c.Get("userID").(string)
	requestID := c.Param("requestId")

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	var last models.RequestStatus
	for {
		request, err := h.svc.GetForActor(c.Request().Context(), requestID, actorID)
		if err != nil {
			conn.WriteJSON(models.ErrorResponse{Message: "request not found"})
			return nil
		}
		if request.Status != last {
			frame := statusFrame{
				RequestID:  request.ID,
				Status:     request.Status,
				ObservedAt: time.Now().UTC(),
			}
			if request.MechanicID.Valid {
				frame.MechanicID = request.MechanicID.String
			}
			if err := conn.WriteJSON(frame); err != nil {
				return nil
			}
			last = request.Status
		}
		if request.Status.IsTerminal() {
			return nil
		}

		select {
		case <-ticker.C:
		case <-c.Request().Context().Done():
			return nil
		}
	}
}
