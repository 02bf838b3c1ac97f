package api

import (
	"net/http"

	"carcare-dispatch/internal/api/middleware"
	"carcare-dispatch/internal/models"
	"carcare-dispatch/internal/modules/activity"
	"carcare-dispatch/internal/modules/availability"
	"carcare-dispatch/internal/modules/location"
	"carcare-dispatch/internal/modules/matching"
	"carcare-dispatch/internal/modules/requests"

	"github.com/labstack/echo/v4"
)

// SetupRoutes sets up all the API endpoints for the application.
func SetupRoutes(
	e *echo.Echo,
	jwtSecret string,
	requestHandler *requests.Handler,
	availabilityHandler *availability.Handler,
	matchingHandler *matching.Handler,
	locationHandler *location.Handler,
	activityHandler *activity.Handler,
) {
	authMiddleware := middleware.JWTAuth(jwtSecret)
	mechanicRequired := middleware.RoleRequired(models.RoleMechanic)

	// --- Public Routes ---
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "CarCare dispatch API"})
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// --- Request Lifecycle Routes ---
	requestGroup := e.Group("/requests", authMiddleware)
	{
		requestGroup.POST("", requestHandler.CreateRequest)
		requestGroup.GET("", requestHandler.ListMyRequests)
		requestGroup.GET("/:requestId", requestHandler.GetRequest)
		requestGroup.POST("/:requestId/claim", requestHandler.ClaimRequest, mechanicRequired)
		requestGroup.POST("/:requestId/transition", requestHandler.TransitionRequest)
		requestGroup.PUT("/:requestId/cancel", requestHandler.CancelRequest)
		// History is backed by the Mongo activity log, which is optional.
		if activityHandler != nil {
			requestGroup.GET("/:requestId/history", activityHandler.GetHistory)
		}
	}

	// --- Live Status Stream ---
	e.GET("/ws/requests/:requestId/track", requestHandler.HandleTrack, authMiddleware)

	// --- Dispatch / Matching ---
	e.POST("/match", matchingHandler.Match, authMiddleware)

	// --- Mechanic Availability ---
	mechanicGroup := e.Group("/mechanics/me", authMiddleware, mechanicRequired)
	{
		mechanicGroup.GET("/availability", availabilityHandler.GetMyAvailability)
		mechanicGroup.PUT("/availability", availabilityHandler.UpsertMyAvailability)
	}

	// --- Location Services ---
	locationGroup := e.Group("/location", authMiddleware)
	{
		locationGroup.POST("/position", locationHandler.RequestPosition)
		locationGroup.POST("/reverse-geocode", locationHandler.ReverseGeocode)
		locationGroup.POST("/search", locationHandler.SearchAddresses)
		locationGroup.GET("/permission", locationHandler.GetPermissionStatus)
	}
}
