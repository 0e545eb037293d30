package model

import "time"

// RequestKind discriminates the two bookable request types.
type RequestKind string

const (
	KindMentorship RequestKind = "mentorship"
	KindGroup      RequestKind = "group"
)

// AttemptStatus is the lifecycle of one gateway charge attempt.
type AttemptStatus string

const (
	// AttemptPending is written before the gateway is called.
	AttemptPending AttemptStatus = "PENDING"
	// AttemptRequiresAction means the customer must finish authentication.
	AttemptRequiresAction AttemptStatus = "REQUIRES_ACTION"
	// AttemptFailed covers declines, gateway errors and timeouts.
	AttemptFailed AttemptStatus = "FAILED"
	// AttemptCaptured means the charge succeeded but the booking has not
	// been written yet.
	AttemptCaptured AttemptStatus = "CAPTURED"
	// AttemptSettled means the booking was written.
	AttemptSettled AttemptStatus = "SETTLED"
	// AttemptOrphaned marks a captured charge whose request vanished; it
	// needs manual reconciliation.
	AttemptOrphaned AttemptStatus = "ORPHANED"
)

// PaymentAttempt is the outbox row recorded before every gateway call.  It
// is what lets the sweeper finish a booking whose charge succeeded but
// whose database write failed.
type PaymentAttempt struct {
	ID              string        // payment_attempts.id
	Kind            RequestKind   // payment_attempts.kind
	RequestID       string        // payment_attempts.request_id
	UserID          string        // payment_attempts.user_id
	IdempotencyKey  string        // payment_attempts.idempotency_key (unique)
	AmountMinor     int64         // payment_attempts.amount_minor
	Currency        string        // payment_attempts.currency
	Status          AttemptStatus // payment_attempts.status
	GatewayIntentID string        // payment_attempts.gateway_intent_id
	FailureReason   string        // payment_attempts.failure_reason
	CollaborationID string        // payment_attempts.collaboration_id (mentorship only)
	CreatedAt       time.Time     // payment_attempts.created_at
	UpdatedAt       time.Time     // payment_attempts.updated_at
}
