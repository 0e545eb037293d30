package service

import (
	"context"
	"fmt"

	"github.com/connectsphere/booking-core/internal/model"
)

// SlotRegistry answers whether a mentor slot is free.  It is read-only and
// safe for concurrent use.
type SlotRegistry struct {
	mentors MentorStore
	slots   SlotStore
}

func NewSlotRegistry(mentors MentorStore, slots SlotStore) *SlotRegistry {
	return &SlotRegistry{mentors: mentors, slots: slots}
}

// IsSlotLocked reports whether (mentorID, day, timeSlot) is held by an
// active collaboration or an accepted, unpaid request.  Pending requests
// never lock a slot.
func (r *SlotRegistry) IsSlotLocked(ctx context.Context, mentorID, day, timeSlot string) (bool, error) {
	slot, err := model.NewSlot(day, timeSlot)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if _, err := r.mentors.GetByID(ctx, mentorID); err != nil {
		return false, translate(err)
	}
	locked, err := r.slots.IsLocked(ctx, mentorID, slot)
	if err != nil {
		return false, fmt.Errorf("slot lock lookup: %w", err)
	}
	return locked, nil
}

// SlotAvailability is one cell of the weekly grid.
type SlotAvailability struct {
	Day      model.Weekday `json:"day"`
	TimeSlot string        `json:"time_slot"`
	Locked   bool          `json:"locked"`
}

// Availability returns the full weekly grid for a mentor, catalog order.
func (r *SlotRegistry) Availability(ctx context.Context, mentorID string) ([]SlotAvailability, error) {
	if _, err := r.mentors.GetByID(ctx, mentorID); err != nil {
		return nil, translate(err)
	}
	locked, err := r.slots.LockedSlots(ctx, mentorID)
	if err != nil {
		return nil, fmt.Errorf("locked slots: %w", err)
	}
	taken := make(map[model.Slot]bool, len(locked))
	for _, s := range locked {
		taken[s] = true
	}
	out := make([]SlotAvailability, 0, len(model.Weekdays)*len(model.TimeSlots))
	for _, d := range model.Weekdays {
		for _, ts := range model.TimeSlots {
			s := model.Slot{Day: d, TimeSlot: ts}
			out = append(out, SlotAvailability{Day: d, TimeSlot: ts, Locked: taken[s]})
		}
	}
	return out, nil
}
