package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/connectsphere/booking-core/internal/handler"
)

// RegisterRoutes registers the unauthenticated endpoints: health, metrics
// and the static slot catalog.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, slots *handler.SlotHandler) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/v1/time-slots", slots.TimeSlots)
}
