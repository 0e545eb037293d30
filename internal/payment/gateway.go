// Package payment talks to the external payment gateway.  The rest of the
// service only sees the Gateway interface; StripeGateway is the production
// implementation.
package payment

import (
	"context"
	"fmt"
)

// IntentStatus is the gateway outcome the booking core branches on.
type IntentStatus string

const (
	StatusSucceeded      IntentStatus = "succeeded"
	StatusRequiresAction IntentStatus = "requires_action"
	StatusFailed         IntentStatus = "failed"
)

// IntentRequest is one charge attempt.
//
// Fields:
//  AmountMinor      – amount in minor units (paise, cents).
//  Currency         – ISO code, lower case.
//  CustomerRef      – gateway customer id from FindOrCreateCustomer.
//  PaymentMethodRef – gateway payment method id supplied by the client.
//  IdempotencyKey   – key for this logical attempt.
//  ReturnURL        – where the gateway sends the customer after 3-D Secure.
//  Metadata         – links the charge back to the booking.
type IntentRequest struct {
	AmountMinor      int64
	Currency         string
	CustomerRef      string
	PaymentMethodRef string
	IdempotencyKey   string
	ReturnURL        string
	Metadata         map[string]string
}

// Intent is the gateway response.  ClientSecret is set when the customer
// must complete an action.  FailureCode and FailureMessage carry the decline
// reason when Status is StatusFailed.
type Intent struct {
	ID             string
	Status         IntentStatus
	ClientSecret   string
	FailureCode    string
	FailureMessage string
}

// Gateway is the payment collaborator.  Each call is one network round
// trip bounded by ctx.
//
// CreatePaymentIntent replays its first response for a reused idempotency
// key, so an intent that later changes state (the customer finished 3-D
// Secure) is read back with GetPaymentIntent.  CancelPaymentIntent gives up
// on an intent that still waits for the customer.
type Gateway interface {
	FindOrCreateCustomer(ctx context.Context, email string) (string, error)
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	GetPaymentIntent(ctx context.Context, id string) (*Intent, error)
	CancelPaymentIntent(ctx context.Context, id string) (*Intent, error)
}

// Error wraps a gateway failure with the gateway's code and message.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("payment gateway: %s", e.Message)
	}
	return fmt.Sprintf("payment gateway: %s (%s)", e.Message, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }
