package router

import (
	"github.com/labstack/echo/v4"

	"github.com/connectsphere/booking-core/internal/handler"
	"github.com/connectsphere/booking-core/internal/middleware"
	"github.com/connectsphere/booking-core/internal/model"
)

// Booking bundles what RegisterBooking needs.
type Booking struct {
	Slots     *handler.SlotHandler
	Requests  *handler.RequestHandler
	Payments  *handler.PaymentHandler
	JWTSecret string
	// RateLimit guards the endpoints that create requests and charges.
	RateLimit echo.MiddlewareFunc
}

// RegisterBooking mounts the booking workflow under /v1.  Every route needs
// a valid JWT; deciding on requests additionally needs the MENTOR or ADMIN
// role, and the services re-check ownership of the mentor profile.
func RegisterBooking(e *echo.Echo, b Booking) {
	limit := b.RateLimit
	if limit == nil {
		limit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	g := e.Group("/v1", middleware.JWTAuth(b.JWTSecret))

	g.GET("/mentors/:id/slots", b.Slots.Availability)
	g.GET("/mentors/:id/slots/lock", b.Slots.Lock)

	g.POST("/requests", b.Requests.Create, limit)
	g.GET("/requests/:id", b.Requests.Get)
	g.GET("/my-requests", b.Requests.ListMine)
	g.POST("/groups/:id/requests", b.Requests.CreateGroupRequest, limit)

	mentor := middleware.RequireRole(model.RoleMentor, model.RoleAdmin)
	g.GET("/mentor/requests", b.Requests.ListForMentor, mentor)
	g.PUT("/requests/:id/accept", b.Requests.Accept, mentor)
	g.PUT("/requests/:id/reject", b.Requests.Reject, mentor)
	g.PUT("/group-requests/:id/accept", b.Requests.AcceptGroupRequest, mentor)
	g.PUT("/group-requests/:id/reject", b.Requests.RejectGroupRequest, mentor)

	g.POST("/payments", b.Payments.Pay, limit)
	g.GET("/collaborations", b.Payments.ListCollaborations)
	g.GET("/collaborations/:id", b.Payments.GetCollaboration)
}
