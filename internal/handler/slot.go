package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/connectsphere/booking-core/internal/model"
	"github.com/connectsphere/booking-core/internal/service"
)

// SlotService is implemented by *service.SlotRegistry.
type SlotService interface {
	IsSlotLocked(ctx context.Context, mentorID, day, timeSlot string) (bool, error)
	Availability(ctx context.Context, mentorID string) ([]service.SlotAvailability, error)
}

// SlotHandler serves the slot catalog and mentor availability.
type SlotHandler struct {
	Slots SlotService
	Log   *zap.Logger
}

func NewSlotHandler(slots SlotService, log *zap.Logger) *SlotHandler {
	if slots == nil {
		panic("nil slot service passed to NewSlotHandler")
	}
	return &SlotHandler{Slots: slots, Log: log}
}

// TimeSlots handles GET /v1/time-slots.
func (h *SlotHandler) TimeSlots(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"days": model.Weekdays, "time_slots": model.TimeSlots})
}

// Availability handles GET /v1/mentors/:id/slots.
func (h *SlotHandler) Availability(c echo.Context) error {
	grid, err := h.Slots.Availability(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"mentor_id": c.Param("id"), "slots": grid})
}

// Lock handles GET /v1/mentors/:id/slots/lock?day=&time_slot=.
func (h *SlotHandler) Lock(c echo.Context) error {
	day, ts := c.QueryParam("day"), c.QueryParam("time_slot")
	if day == "" || ts == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "day and time_slot are required", "code": "validation_failed"})
	}
	locked, err := h.Slots.IsSlotLocked(c.Request().Context(), c.Param("id"), day, ts)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"mentor_id": c.Param("id"), "day": day, "time_slot": ts, "locked": locked})
}
