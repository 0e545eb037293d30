package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/connectsphere/booking-core/internal/database"
	"github.com/connectsphere/booking-core/internal/model"
)

// PaymentAttemptRepo stores the outbox row written before each gateway
// call.  The idempotency_key column is unique.
type PaymentAttemptRepo struct {
	db *sql.DB
}

// NewPaymentAttemptRepo returns a PaymentAttemptRepo bound to the given database.
func NewPaymentAttemptRepo(db *sql.DB) *PaymentAttemptRepo { return &PaymentAttemptRepo{db: db} }

const attemptColumns = `id, kind, request_id, user_id, idempotency_key, amount_minor, currency, status,
	gateway_intent_id, failure_reason, collaboration_id, created_at, updated_at`

func scanAttempt(s rowScanner) (*model.PaymentAttempt, error) {
	var a model.PaymentAttempt
	var intent, reason, collab sql.NullString
	if err := s.Scan(&a.ID, &a.Kind, &a.RequestID, &a.UserID, &a.IdempotencyKey, &a.AmountMinor, &a.Currency, &a.Status,
		&intent, &reason, &collab, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.GatewayIntentID = intent.String
	a.FailureReason = reason.String
	a.CollaborationID = collab.String
	return &a, nil
}

// Create inserts a PENDING attempt.  ErrDuplicateAttempt is returned when the
// idempotency key was used before.
func (r *PaymentAttemptRepo) Create(ctx context.Context, a *model.PaymentAttempt) error {
	const q = `INSERT INTO payment_attempts
		(id, kind, request_id, user_id, idempotency_key, amount_minor, currency, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, a.ID, string(a.Kind), a.RequestID, a.UserID, a.IdempotencyKey,
		a.AmountMinor, a.Currency, string(a.Status), a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	if database.IsDuplicateKey(err) {
		return ErrDuplicateAttempt
	}
	return err
}

// GetByKey returns ErrAttemptNotFound when no attempt uses the key.
func (r *PaymentAttemptRepo) GetByKey(ctx context.Context, key string) (*model.PaymentAttempt, error) {
	a, err := scanAttempt(r.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM payment_attempts WHERE idempotency_key = ?`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	return a, err
}

// MarkOutcome records the gateway result on an attempt.  Settled attempts are
// never overwritten.
func (r *PaymentAttemptRepo) MarkOutcome(ctx context.Context, id string, status model.AttemptStatus, intentID, reason string, at time.Time) error {
	const q = `UPDATE payment_attempts
		SET status = ?, gateway_intent_id = COALESCE(?, gateway_intent_id), failure_reason = ?, updated_at = ?
		WHERE id = ? AND status <> 'SETTLED'`
	_, err := r.db.ExecContext(ctx, q, string(status), nullString(intentID), nullString(reason), at.UTC(), id)
	return err
}

// FindOpenByRequest returns the attempt of a request that may still end in
// a charge: CAPTURED before REQUIRES_ACTION before PENDING, newest first
// within a status.  ErrAttemptNotFound is returned when there is none.
func (r *PaymentAttemptRepo) FindOpenByRequest(ctx context.Context, kind model.RequestKind, requestID string) (*model.PaymentAttempt, error) {
	q := `SELECT ` + attemptColumns + ` FROM payment_attempts
		WHERE kind = ? AND request_id = ? AND status IN ('CAPTURED', 'REQUIRES_ACTION', 'PENDING')
		ORDER BY FIELD(status, 'CAPTURED', 'REQUIRES_ACTION', 'PENDING'), updated_at DESC LIMIT 1`
	a, err := scanAttempt(r.db.QueryRowContext(ctx, q, string(kind), requestID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	return a, err
}

// ListStale returns up to limit attempts in status last updated before the
// cutoff, oldest first.
func (r *PaymentAttemptRepo) ListStale(ctx context.Context, status model.AttemptStatus, before time.Time, limit int) ([]*model.PaymentAttempt, error) {
	q := `SELECT ` + attemptColumns + ` FROM payment_attempts
		WHERE status = ? AND updated_at < ? ORDER BY updated_at LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, string(status), before.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.PaymentAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
