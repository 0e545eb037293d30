package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/connectsphere/booking-core/internal/database"
	"github.com/connectsphere/booking-core/internal/model"
)

// CollaborationRepo provides access to the collaborations table and owns the
// request-to-collaboration conversion.
type CollaborationRepo struct {
	db *sql.DB
}

// NewCollaborationRepo returns a CollaborationRepo bound to the given database.
func NewCollaborationRepo(db *sql.DB) *CollaborationRepo { return &CollaborationRepo{db: db} }

const collaborationColumns = `id, mentor_id, user_id, day, time_slot, price_minor, currency,
	start_date, end_date, payment, payment_ref, is_cancelled, is_completed, created_at`

func scanCollaboration(s rowScanner) (*model.Collaboration, error) {
	var (
		c   model.Collaboration
		day string
		ref sql.NullString
	)
	if err := s.Scan(&c.ID, &c.MentorID, &c.UserID, &day, &c.Slot.TimeSlot, &c.PriceMinor, &c.Currency,
		&c.StartDate, &c.EndDate, &c.Payment, &ref, &c.IsCancelled, &c.IsCompleted, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Slot.Day = model.Weekday(day)
	c.PaymentRef = ref.String
	return &c, nil
}

// FinalizeFromRequest converts a paid request into a collaboration.  In one
// transaction it deletes the request (only while it is still accepted and
// unpaid), inserts the collaboration and marks the payment attempt settled.
// ErrRequestNotFound means the request was already converted or removed.
func (r *CollaborationRepo) FinalizeFromRequest(ctx context.Context, c *model.Collaboration, requestID, attemptID string) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		const del = `DELETE FROM mentorship_requests
			WHERE id = ? AND is_accepted = 'ACCEPTED' AND payment_status <> 'PAID'`
		res, err := tx.ExecContext(ctx, del, requestID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrRequestNotFound
		}

		const ins = `INSERT INTO collaborations
			(id, mentor_id, user_id, day, time_slot, price_minor, currency,
			 start_date, end_date, payment, payment_ref, is_cancelled, is_completed, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, ins,
			c.ID, c.MentorID, c.UserID, string(c.Slot.Day), c.Slot.TimeSlot, c.PriceMinor, c.Currency,
			c.StartDate.UTC(), c.EndDate.UTC(), c.Payment, nullString(c.PaymentRef), c.IsCancelled, c.IsCompleted,
			c.CreatedAt.UTC(),
		); err != nil {
			return err
		}

		return settleAttemptTx(ctx, tx, attemptID, c.ID, c.CreatedAt)
	})
}

// GetByID returns ErrCollaborationNotFound when the row does not exist.
func (r *CollaborationRepo) GetByID(ctx context.Context, id string) (*model.Collaboration, error) {
	c, err := scanCollaboration(r.db.QueryRowContext(ctx, `SELECT `+collaborationColumns+` FROM collaborations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCollaborationNotFound
	}
	return c, err
}

// ListByParticipant returns collaborations where the user is the mentee or,
// when mentorID is non-empty, the mentor.
func (r *CollaborationRepo) ListByParticipant(ctx context.Context, userID, mentorID string) ([]*model.Collaboration, error) {
	q := `SELECT ` + collaborationColumns + ` FROM collaborations WHERE user_id = ? OR mentor_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID, mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Collaboration
	for rows.Next() {
		c, err := scanCollaboration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// HasActiveForUserSlot reports whether the user already holds an active
// collaboration at this wall-clock slot with any mentor.
func (r *CollaborationRepo) HasActiveForUserSlot(ctx context.Context, userID string, slot model.Slot) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM collaborations
		WHERE user_id = ? AND day = ? AND time_slot = ? AND is_cancelled = 0 AND is_completed = 0)`
	var exists bool
	err := r.db.QueryRowContext(ctx, q, userID, string(slot.Day), slot.TimeSlot).Scan(&exists)
	return exists, err
}

// settleAttemptTx marks an attempt SETTLED, linking the collaboration when
// there is one.
func settleAttemptTx(ctx context.Context, tx *sql.Tx, attemptID, collaborationID string, at time.Time) error {
	const q = `UPDATE payment_attempts SET status = 'SETTLED', collaboration_id = ?, updated_at = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, nullString(collaborationID), at.UTC(), attemptID)
	return err
}
