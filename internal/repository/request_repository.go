package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/connectsphere/booking-core/internal/database"
	"github.com/connectsphere/booking-core/internal/model"
)

// RequestRepo provides access to the mentorship_requests table.  Status
// transitions are compare-and-set updates guarded on the current
// is_accepted value so that concurrent callers are serialized by MySQL.
type RequestRepo struct {
	db *sql.DB
}

// NewRequestRepo returns a RequestRepo bound to the given database.
func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{db: db} }

const requestColumns = `id, mentor_id, user_id, day, time_slot, price_minor, currency,
	is_accepted, payment_status, accepted_at, created_at, updated_at`

// outstandingPredicate matches requests that still compete for their slot.
const outstandingPredicate = `(is_accepted = 'PENDING' OR (is_accepted = 'ACCEPTED' AND payment_status <> 'PAID'))`

func scanRequest(s rowScanner) (*model.MentorshipRequest, error) {
	var (
		r          model.MentorshipRequest
		day        string
		acceptedAt sql.NullTime
	)
	if err := s.Scan(&r.ID, &r.MentorID, &r.UserID, &day, &r.Slot.TimeSlot, &r.PriceMinor, &r.Currency,
		&r.IsAccepted, &r.PaymentStatus, &acceptedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Slot.Day = model.Weekday(day)
	if acceptedAt.Valid {
		t := acceptedAt.Time
		r.AcceptedAt = &t
	}
	return &r, nil
}

func collectRequests(rows *sql.Rows) ([]*model.MentorshipRequest, error) {
	defer rows.Close()
	var out []*model.MentorshipRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new request.  ID, CreatedAt and UpdatedAt must be set by
// the caller.
func (r *RequestRepo) Create(ctx context.Context, req *model.MentorshipRequest) error {
	const q = `INSERT INTO mentorship_requests
		(id, mentor_id, user_id, day, time_slot, price_minor, currency, is_accepted, payment_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		req.ID, req.MentorID, req.UserID, string(req.Slot.Day), req.Slot.TimeSlot,
		req.PriceMinor, req.Currency, string(req.IsAccepted), string(req.PaymentStatus),
		req.CreatedAt.UTC(), req.UpdatedAt.UTC(),
	)
	return err
}

// GetByID returns ErrRequestNotFound when the row does not exist.
func (r *RequestRepo) GetByID(ctx context.Context, id string) (*model.MentorshipRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM mentorship_requests WHERE id = ?`
	req, err := scanRequest(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	return req, err
}

// FindConflicting returns the user's other outstanding requests for the same
// wall-clock slot, across every mentor.  Served by the
// (user_id, day, time_slot) index.
func (r *RequestRepo) FindConflicting(ctx context.Context, userID string, slot model.Slot, excludeID string) ([]*model.MentorshipRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM mentorship_requests
		WHERE user_id = ? AND day = ? AND time_slot = ? AND id <> ? AND ` + outstandingPredicate + `
		ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, userID, string(slot.Day), slot.TimeSlot, excludeID)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

// HasOutstanding reports whether the user already has an outstanding request
// for this mentor and slot.
func (r *RequestRepo) HasOutstanding(ctx context.Context, userID, mentorID string, slot model.Slot) (bool, error) {
	q := `SELECT EXISTS(SELECT 1 FROM mentorship_requests
		WHERE user_id = ? AND mentor_id = ? AND day = ? AND time_slot = ? AND ` + outstandingPredicate + `)`
	var exists bool
	err := r.db.QueryRowContext(ctx, q, userID, mentorID, string(slot.Day), slot.TimeSlot).Scan(&exists)
	return exists, err
}

// AcceptParams describes one accept transition.
//
// Fields:
//  ID          – request being accepted.
//  MentorID    – mentor owning the request; its row is locked for the
//                duration of the transaction.
//  Slot        – slot of the request.
//  WithdrawIDs – the requester's conflicting requests, deleted in the same
//                transaction.
//  At          – acceptance timestamp.
type AcceptParams struct {
	ID          string
	MentorID    string
	Slot        model.Slot
	WithdrawIDs []string
	At          time.Time
}

// Accept moves a request from PENDING to ACCEPTED and withdraws the listed
// conflicts in one transaction.  The mentor row is locked first so two
// accepts for the same mentor slot cannot both succeed: the second one sees
// the first as a lock and gets ErrSlotTaken.  A request that already left
// PENDING yields ErrStaleState.
func (r *RequestRepo) Accept(ctx context.Context, p AcceptParams) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var locked string
		if err := tx.QueryRowContext(ctx, `SELECT id FROM mentors WHERE id = ? FOR UPDATE`, p.MentorID).Scan(&locked); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrMentorNotFound
			}
			return err
		}
		taken, err := slotLockedTx(ctx, tx, p.MentorID, p.Slot, p.ID)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}

		const q = `UPDATE mentorship_requests
			SET is_accepted = 'ACCEPTED', accepted_at = ?, updated_at = ?
			WHERE id = ? AND is_accepted = 'PENDING'`
		res, err := tx.ExecContext(ctx, q, p.At.UTC(), p.At.UTC(), p.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrStaleState
		}

		if len(p.WithdrawIDs) == 0 {
			return nil
		}
		del := `DELETE FROM mentorship_requests WHERE id IN (` + placeholders(len(p.WithdrawIDs)) + `) AND ` + outstandingPredicate
		args := make([]any, 0, len(p.WithdrawIDs))
		for _, id := range p.WithdrawIDs {
			args = append(args, id)
		}
		_, err = tx.ExecContext(ctx, del, args...)
		return err
	})
}

// Reject moves a request from PENDING to REJECTED.
func (r *RequestRepo) Reject(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE mentorship_requests
		SET is_accepted = 'REJECTED', updated_at = ?
		WHERE id = ? AND is_accepted = 'PENDING'`
	res, err := r.db.ExecContext(ctx, q, at.UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleState
	}
	return nil
}

// ListByUser returns the requests created by a user, newest first.
func (r *RequestRepo) ListByUser(ctx context.Context, userID string) ([]*model.MentorshipRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM mentorship_requests WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

// ListByMentor returns the requests addressed to a mentor, newest first.
func (r *RequestRepo) ListByMentor(ctx context.Context, mentorID string) ([]*model.MentorshipRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM mentorship_requests WHERE mentor_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, mentorID)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

// abandonedPredicate matches accepted, unpaid requests accepted before the
// cutoff that have no payment attempt still in flight.  Captured and
// requires-action attempts always count as in flight: the sweeper settles
// or cancels the latter at the gateway first.  A pending attempt counts
// while it was touched after the cutoff.  Both placeholders take the cutoff.
const abandonedPredicate = `is_accepted = 'ACCEPTED' AND payment_status <> 'PAID' AND accepted_at < ?
	AND NOT EXISTS (SELECT 1 FROM payment_attempts pa
		WHERE pa.kind = 'mentorship' AND pa.request_id = mentorship_requests.id
		AND (pa.status IN ('CAPTURED', 'REQUIRES_ACTION') OR (pa.status = 'PENDING' AND pa.updated_at >= ?)))`

// ListAbandoned returns up to limit accepted-unpaid requests accepted before
// cutoff with no in-flight payment attempt.
func (r *RequestRepo) ListAbandoned(ctx context.Context, cutoff time.Time, limit int) ([]*model.MentorshipRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM mentorship_requests WHERE ` + abandonedPredicate + ` ORDER BY accepted_at LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, cutoff.UTC(), cutoff.UTC(), limit)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

// DeleteAbandoned removes one request if it still matches the abandoned
// predicate.  It reports whether a row was removed.
func (r *RequestRepo) DeleteAbandoned(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	q := `DELETE FROM mentorship_requests WHERE id = ? AND ` + abandonedPredicate
	res, err := r.db.ExecContext(ctx, q, id, cutoff.UTC(), cutoff.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
