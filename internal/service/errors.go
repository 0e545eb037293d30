package service

import (
	"errors"
	"fmt"

	"github.com/connectsphere/booking-core/internal/model"
)

// Error kinds surfaced to the HTTP layer.  Each maps to a distinct status
// and body code there.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrSlotLocked      = errors.New("slot is already booked")
	ErrGroupFull       = errors.New("group is full")
	ErrForbidden       = errors.New("forbidden")
	ErrValidation      = errors.New("validation failed")
	ErrAmountMismatch  = errors.New("amount does not match the booked price")
	ErrPaymentDeclined = errors.New("payment declined")
)

// PaymentError is returned when the gateway declined the charge or could not
// be reached.  errors.Is(err, ErrPaymentDeclined) holds for every
// PaymentError.
type PaymentError struct {
	Code     string // gateway decline or error code, may be empty
	Message  string
	IntentID string // set when the gateway created an intent
	Err      error
}

func (e *PaymentError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment declined: %s (%s)", e.Message, e.Code)
	}
	return "payment declined: " + e.Message
}

func (e *PaymentError) Is(target error) bool { return target == ErrPaymentDeclined }

func (e *PaymentError) Unwrap() error { return e.Err }

// ConflictError is returned by accept when the requester holds other
// outstanding requests for the same slot and the caller has not confirmed
// withdrawing them.
type ConflictError struct {
	Conflicts []*model.MentorshipRequest
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("accepting withdraws %d conflicting request(s); confirmation required", len(e.Conflicts))
}
