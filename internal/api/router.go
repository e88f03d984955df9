package api

import (
	"net/http"

	"foodie-delivery/internal/modules/delivery"
	"foodie-delivery/internal/realtime"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes sets up all the API endpoints for the delivery service.
func SetupRoutes(
	e *echo.Echo,
	deliveryHandler *delivery.Handler,
	gateway *realtime.Gateway,
	health echo.HandlerFunc,
	registry *prometheus.Registry,
) {
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Foodie Delivery Service"})
	})
	e.GET("/healthz", health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// --- Delivery Routes ---
	deliveryGroup := e.Group("/deliveries")
	{
		deliveryGroup.POST("", deliveryHandler.Create)
		deliveryGroup.GET("/nearby", deliveryHandler.ListNearby)
		deliveryGroup.GET("/status/:status", deliveryHandler.ListByStatus)
		deliveryGroup.GET("/rider/:riderId", deliveryHandler.ListByRider)
		deliveryGroup.GET("/rider/:riderId/active", deliveryHandler.GetActiveForRider)
		deliveryGroup.GET("/order/:orderId", deliveryHandler.GetByOrder)
		deliveryGroup.GET("/:id", deliveryHandler.Get)
		deliveryGroup.PUT("/:id/accept", deliveryHandler.Accept)
		deliveryGroup.PUT("/:id/status", deliveryHandler.UpdateStatus)
		deliveryGroup.PUT("/:id/location", deliveryHandler.UpdateRiderLocation)
		deliveryGroup.GET("/:id/track", deliveryHandler.Track)
	}

	// --- Realtime Tracking ---
	e.GET("/ws/deliveries", gateway.Serve)
}
