package repository

import (
	"context"
	"database/sql"

	"github.com/connectsphere/booking-core/internal/model"
)

// SlotRepo answers slot-lock questions.  A lock is never stored: it is the
// union of active collaborations and accepted-unpaid requests, computed on
// every call.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotLockedQuery = `SELECT
	EXISTS(SELECT 1 FROM collaborations
		WHERE mentor_id = ? AND day = ? AND time_slot = ? AND is_cancelled = 0 AND is_completed = 0)
	OR EXISTS(SELECT 1 FROM mentorship_requests
		WHERE mentor_id = ? AND day = ? AND time_slot = ? AND is_accepted = 'ACCEPTED' AND payment_status <> 'PAID' AND id <> ?)`

// IsLocked reports whether the mentor slot is held by an active
// collaboration or an accepted, unpaid request.
func (r *SlotRepo) IsLocked(ctx context.Context, mentorID string, slot model.Slot) (bool, error) {
	var locked bool
	err := r.db.QueryRowContext(ctx, slotLockedQuery,
		mentorID, string(slot.Day), slot.TimeSlot,
		mentorID, string(slot.Day), slot.TimeSlot, "",
	).Scan(&locked)
	return locked, err
}

// slotLockedTx is IsLocked inside a transaction, ignoring request excludeID.
func slotLockedTx(ctx context.Context, tx *sql.Tx, mentorID string, slot model.Slot, excludeID string) (bool, error) {
	var locked bool
	err := tx.QueryRowContext(ctx, slotLockedQuery,
		mentorID, string(slot.Day), slot.TimeSlot,
		mentorID, string(slot.Day), slot.TimeSlot, excludeID,
	).Scan(&locked)
	return locked, err
}

// LockedSlots returns every locked slot of a mentor, for the availability
// grid.
func (r *SlotRepo) LockedSlots(ctx context.Context, mentorID string) ([]model.Slot, error) {
	const q = `SELECT day, time_slot FROM collaborations
			WHERE mentor_id = ? AND is_cancelled = 0 AND is_completed = 0
		UNION
		SELECT day, time_slot FROM mentorship_requests
			WHERE mentor_id = ? AND is_accepted = 'ACCEPTED' AND payment_status <> 'PAID'`
	rows, err := r.db.QueryContext(ctx, q, mentorID, mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Slot
	for rows.Next() {
		var day, label string
		if err := rows.Scan(&day, &label); err != nil {
			return nil, err
		}
		out = append(out, model.Slot{Day: model.Weekday(day), TimeSlot: label})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
