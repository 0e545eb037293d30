package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/connectsphere/booking-core/internal/database"
	"github.com/connectsphere/booking-core/internal/model"
)

// GroupRepo provides access to mentor_groups, group_members and
// group_requests.  Capacity checks lock the group row with
// SELECT ... FOR UPDATE so concurrent accepts and payments against the same
// group are serialized.
type GroupRepo struct {
	db *sql.DB
}

// NewGroupRepo returns a GroupRepo bound to the given database.
func NewGroupRepo(db *sql.DB) *GroupRepo { return &GroupRepo{db: db} }

const groupRequestColumns = `id, group_id, user_id, status, payment_status, amount_paid_minor, created_at, updated_at`

func scanGroupRequest(s rowScanner) (*model.GroupRequest, error) {
	var g model.GroupRequest
	if err := s.Scan(&g.ID, &g.GroupID, &g.UserID, &g.Status, &g.PaymentStatus, &g.AmountPaidMinor, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGroup returns the group with its current member count.
func (r *GroupRepo) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	const q = `SELECT g.id, g.mentor_id, g.name, g.max_members, g.price_minor, g.currency, g.created_at,
			(SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id)
		FROM mentor_groups g WHERE g.id = ?`
	var g model.Group
	err := r.db.QueryRowContext(ctx, q, id).Scan(&g.ID, &g.MentorID, &g.Name, &g.MaxMembers, &g.PriceMinor, &g.Currency, &g.CreatedAt, &g.MemberCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// IsMember reports whether the user already belongs to the group.
func (r *GroupRepo) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?)`, groupID, userID,
	).Scan(&exists)
	return exists, err
}

// HasOutstandingRequest reports whether the user has a pending or
// accepted-unpaid request for the group.
func (r *GroupRepo) HasOutstandingRequest(ctx context.Context, groupID, userID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM group_requests
		WHERE group_id = ? AND user_id = ?
		AND (status = 'PENDING' OR (status = 'ACCEPTED' AND payment_status <> 'PAID')))`
	var exists bool
	err := r.db.QueryRowContext(ctx, q, groupID, userID).Scan(&exists)
	return exists, err
}

// CreateRequest inserts a group request.  ID and timestamps are set by the
// caller.
func (r *GroupRepo) CreateRequest(ctx context.Context, g *model.GroupRequest) error {
	const q = `INSERT INTO group_requests
		(id, group_id, user_id, status, payment_status, amount_paid_minor, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, g.ID, g.GroupID, g.UserID, string(g.Status), string(g.PaymentStatus),
		g.AmountPaidMinor, g.CreatedAt.UTC(), g.UpdatedAt.UTC())
	return err
}

// GetRequest returns ErrGroupRequestNotFound when the row does not exist.
func (r *GroupRepo) GetRequest(ctx context.Context, id string) (*model.GroupRequest, error) {
	g, err := scanGroupRequest(r.db.QueryRowContext(ctx, `SELECT `+groupRequestColumns+` FROM group_requests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGroupRequestNotFound
	}
	return g, err
}

// lockCapacityTx locks the group row and returns ErrGroupFull when the
// member ceiling is reached.
func lockCapacityTx(ctx context.Context, tx *sql.Tx, groupID string) error {
	var maxMembers int
	err := tx.QueryRowContext(ctx, `SELECT max_members FROM mentor_groups WHERE id = ? FOR UPDATE`, groupID).Scan(&maxMembers)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrGroupNotFound
	}
	if err != nil {
		return err
	}
	var members int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM group_members WHERE group_id = ?`, groupID).Scan(&members); err != nil {
		return err
	}
	if members >= maxMembers {
		return ErrGroupFull
	}
	return nil
}

// AcceptRequest moves a group request from PENDING to ACCEPTED while the
// group has room.
func (r *GroupRepo) AcceptRequest(ctx context.Context, requestID, groupID string, at time.Time) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockCapacityTx(ctx, tx, groupID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE group_requests SET status = 'ACCEPTED', updated_at = ? WHERE id = ? AND status = 'PENDING'`,
			at.UTC(), requestID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrStaleState
		}
		return nil
	})
}

// RejectRequest moves a group request from PENDING to REJECTED.
func (r *GroupRepo) RejectRequest(ctx context.Context, requestID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE group_requests SET status = 'REJECTED', updated_at = ? WHERE id = ? AND status = 'PENDING'`,
		at.UTC(), requestID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleState
	}
	return nil
}

// FinalizePayment records a captured group payment.  In one transaction it
// re-checks capacity, marks the request paid with the amount, adds the
// member and settles the attempt.
func (r *GroupRepo) FinalizePayment(ctx context.Context, g *model.GroupRequest, amountMinor int64, attemptID string, at time.Time) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockCapacityTx(ctx, tx, g.GroupID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE group_requests SET payment_status = 'PAID', amount_paid_minor = ?, updated_at = ?
			 WHERE id = ? AND status = 'ACCEPTED' AND payment_status <> 'PAID'`,
			amountMinor, at.UTC(), g.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrStaleState
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)`,
			g.GroupID, g.UserID, at.UTC()); err != nil {
			return err
		}
		return settleAttemptTx(ctx, tx, attemptID, "", at)
	})
}
