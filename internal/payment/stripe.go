package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// StripeGateway implements Gateway on the Stripe API.
type StripeGateway struct {
	api *client.API
	log *zap.Logger
}

// NewStripeGateway builds a client bound to secretKey.
func NewStripeGateway(secretKey string, log *zap.Logger) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeGateway{api: sc, log: log.With(zap.String("component", "stripe"))}
}

// FindOrCreateCustomer returns the first customer registered with email or
// creates one.  Creation carries an email-derived idempotency key so two
// concurrent first payments by the same payer still produce one customer.
func (g *StripeGateway) FindOrCreateCustomer(ctx context.Context, email string) (string, error) {
	lp := &stripe.CustomerListParams{Email: stripe.String(email)}
	lp.Context = ctx
	lp.Limit = stripe.Int64(1)
	it := g.api.Customers.List(lp)
	if it.Next() {
		return it.Customer().ID, nil
	}
	if err := it.Err(); err != nil {
		return "", wrapStripeError(err)
	}

	cp := &stripe.CustomerParams{Email: stripe.String(email)}
	cp.Context = ctx
	cp.SetIdempotencyKey("customer:" + email)
	c, err := g.api.Customers.New(cp)
	if err != nil {
		return "", wrapStripeError(err)
	}
	g.log.Info("customer created", zap.String("customer_id", c.ID))
	return c.ID, nil
}

// CreatePaymentIntent creates and confirms a payment intent in one call.
// A card decline comes back from Stripe as an error; it is reported as a
// failed Intent so that the caller can record the reason.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.AmountMinor),
		Currency:      stripe.String(req.Currency),
		Customer:      stripe.String(req.CustomerRef),
		PaymentMethod: stripe.String(req.PaymentMethodRef),
		Confirm:       stripe.Bool(true),
	}
	if req.ReturnURL != "" {
		params.ReturnURL = stripe.String(req.ReturnURL)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
			intent := &Intent{Status: StatusFailed, FailureCode: string(se.Code), FailureMessage: se.Msg}
			if se.PaymentIntent != nil {
				intent.ID = se.PaymentIntent.ID
			}
			return intent, nil
		}
		return nil, wrapStripeError(err)
	}
	return intentFromStripe(pi), nil
}

// GetPaymentIntent reads the current state of an intent.
func (g *StripeGateway) GetPaymentIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, wrapStripeError(err)
	}
	return intentFromStripe(pi), nil
}

// CancelPaymentIntent abandons an intent the customer never completed.
// Stripe refuses to cancel an intent that already succeeded; that comes
// back as an error and the caller reads the intent again.
func (g *StripeGateway) CancelPaymentIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Cancel(id, params)
	if err != nil {
		return nil, wrapStripeError(err)
	}
	g.log.Info("payment intent cancelled", zap.String("intent_id", pi.ID))
	return intentFromStripe(pi), nil
}

func intentFromStripe(pi *stripe.PaymentIntent) *Intent {
	out := &Intent{ID: pi.ID, Status: mapStatus(pi.Status)}
	switch out.Status {
	case StatusRequiresAction:
		out.ClientSecret = pi.ClientSecret
	case StatusFailed:
		out.FailureCode = string(pi.Status)
		out.FailureMessage = "payment was not completed"
		if pi.LastPaymentError != nil {
			out.FailureCode = string(pi.LastPaymentError.Code)
			out.FailureMessage = pi.LastPaymentError.Msg
		}
	}
	return out
}

// mapStatus folds Stripe's intent states into the three the booking core
// acts on.  processing is asynchronous confirmation and behaves like
// requires_action: nothing is booked until a later succeeded.
func mapStatus(s stripe.PaymentIntentStatus) IntentStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return StatusSucceeded
	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusProcessing:
		return StatusRequiresAction
	default:
		return StatusFailed
	}
}

func wrapStripeError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return &Error{Code: string(se.Code), Message: se.Msg, Err: err}
	}
	return &Error{Message: fmt.Sprintf("request failed: %v", err), Err: err}
}
