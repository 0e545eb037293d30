package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/connectsphere/booking-core/internal/model"
	"github.com/connectsphere/booking-core/internal/payment"
	"github.com/connectsphere/booking-core/internal/repository"
)

// PaymentRequest is the input of ProcessPayment.  Kind selects which request
// table RequestID refers to.
//
// Fields:
//  Kind             – mentorship or group.
//  RequestID        – id of the accepted request being paid for.
//  PaymentMethodRef – gateway payment method supplied by the client.
//  AmountMinor      – amount the client expects to pay; 0 skips the check.
//  Email            – payer email, used to find the gateway customer.
//  ReturnURL        – where 3-D Secure sends the payer back.
//  AttemptKey       – names one logical attempt; empty starts a new one.
type PaymentRequest struct {
	Kind             model.RequestKind
	RequestID        string
	PaymentMethodRef string
	AmountMinor      int64
	Email            string
	ReturnURL        string
	AttemptKey       string
}

// PaymentOutcome is returned for a succeeded or requires_action charge.
// Exactly one of Collaboration and GroupRequest is set on success.
type PaymentOutcome struct {
	Status        payment.IntentStatus `json:"status"`
	AttemptID     string               `json:"attempt_id"`
	IntentID      string               `json:"intent_id"`
	ClientSecret  string               `json:"client_secret,omitempty"`
	Collaboration *model.Collaboration `json:"collaboration,omitempty"`
	GroupRequest  *model.GroupRequest  `json:"group_request,omitempty"`
}

// FinalizerConfig holds the payment tunables.
type FinalizerConfig struct {
	AccessWindow    time.Duration // collaboration length
	GatewayTimeout  time.Duration // bound for the customer lookup plus the charge
	DefaultCurrency string        // charged when the priced row carries no currency
}

// Finalizer charges accepted requests and turns them into bookings.  A
// payment_attempts row is written before the gateway is called so that a
// charge whose booking write failed can be finished later by Reconcile.
type Finalizer struct {
	mentors  MentorStore
	requests RequestStore
	collabs  CollaborationStore
	groups   GroupStore
	attempts AttemptStore
	gateway  payment.Gateway
	notifier Notifier
	cfg      FinalizerConfig
	log      *zap.Logger
	now      func() time.Time
}

func NewFinalizer(st Stores, gw payment.Gateway, notifier Notifier, cfg FinalizerConfig, log *zap.Logger) *Finalizer {
	return &Finalizer{
		mentors:  st.Mentors,
		requests: st.Requests,
		collabs:  st.Collaborations,
		groups:   st.Groups,
		attempts: st.Attempts,
		gateway:  gw,
		notifier: notifier,
		cfg:      cfg,
		log:      log.With(zap.String("component", "finalizer")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// paymentTarget is the per-kind half of the payment flow.
type paymentTarget interface {
	kind() model.RequestKind
	requestID() string
	payerID() string
	price() (amountMinor int64, currency string)
	// ready reports why the target cannot be charged now, or nil.
	ready() error
	// finalize writes the booking for a captured charge.
	finalize(ctx context.Context, attempt *model.PaymentAttempt, intentID string, at time.Time) (*PaymentOutcome, error)
	// paidNotice is the notification sent to the payer on success.
	paidNotice(out *PaymentOutcome) model.Notification
}

type mentorshipTarget struct {
	f   *Finalizer
	req *model.MentorshipRequest
}

func (t *mentorshipTarget) kind() model.RequestKind { return model.KindMentorship }
func (t *mentorshipTarget) requestID() string       { return t.req.ID }
func (t *mentorshipTarget) payerID() string         { return t.req.UserID }
func (t *mentorshipTarget) price() (int64, string)  { return t.req.PriceMinor, t.req.Currency }

func (t *mentorshipTarget) ready() error {
	if !t.req.SoftLocked() {
		return fmt.Errorf("%w: request is %s with payment %s", ErrInvalidState, t.req.IsAccepted, t.req.PaymentStatus)
	}
	return nil
}

func (t *mentorshipTarget) finalize(ctx context.Context, attempt *model.PaymentAttempt, intentID string, at time.Time) (*PaymentOutcome, error) {
	c := &model.Collaboration{
		ID:         uuid.NewString(),
		MentorID:   t.req.MentorID,
		UserID:     t.req.UserID,
		Slot:       t.req.Slot,
		PriceMinor: t.req.PriceMinor,
		Currency:   t.req.Currency,
		StartDate:  at,
		EndDate:    at.Add(t.f.cfg.AccessWindow),
		Payment:    true,
		PaymentRef: intentID,
		CreatedAt:  at,
	}
	if err := t.f.collabs.FinalizeFromRequest(ctx, c, t.req.ID, attempt.ID); err != nil {
		return nil, err
	}
	return &PaymentOutcome{Collaboration: c}, nil
}

func (t *mentorshipTarget) paidNotice(out *PaymentOutcome) model.Notification {
	return model.Notification{
		UserID:      t.req.UserID,
		Kind:        model.NotifyPaymentSucceeded,
		Message:     fmt.Sprintf("Payment received; your sessions at %s are booked until %s", t.req.Slot, out.Collaboration.EndDate.Format("2006-01-02")),
		ReferenceID: out.Collaboration.ID,
	}
}

type groupTarget struct {
	f     *Finalizer
	gr    *model.GroupRequest
	group *model.Group
}

func (t *groupTarget) kind() model.RequestKind { return model.KindGroup }
func (t *groupTarget) requestID() string       { return t.gr.ID }
func (t *groupTarget) payerID() string         { return t.gr.UserID }
func (t *groupTarget) price() (int64, string)  { return t.group.PriceMinor, t.group.Currency }

func (t *groupTarget) ready() error {
	if t.gr.PaymentStatus == model.PaymentPaid {
		return fmt.Errorf("%w: group request is already paid", ErrInvalidState)
	}
	if t.group.Full() {
		return ErrGroupFull
	}
	if t.gr.Status != model.AcceptanceAccepted {
		return fmt.Errorf("%w: group request is %s", ErrInvalidState, t.gr.Status)
	}
	return nil
}

func (t *groupTarget) finalize(ctx context.Context, attempt *model.PaymentAttempt, _ string, at time.Time) (*PaymentOutcome, error) {
	if err := t.f.groups.FinalizePayment(ctx, t.gr, attempt.AmountMinor, attempt.ID, at); err != nil {
		return nil, err
	}
	t.gr.PaymentStatus = model.PaymentPaid
	t.gr.AmountPaidMinor = attempt.AmountMinor
	t.gr.UpdatedAt = at
	return &PaymentOutcome{GroupRequest: t.gr}, nil
}

func (t *groupTarget) paidNotice(_ *PaymentOutcome) model.Notification {
	return model.Notification{
		UserID:      t.gr.UserID,
		Kind:        model.NotifyGroupJoined,
		Message:     fmt.Sprintf("Payment received; welcome to %s", t.group.Name),
		ReferenceID: t.gr.ID,
	}
}

func (f *Finalizer) loadTarget(ctx context.Context, kind model.RequestKind, id string) (paymentTarget, error) {
	switch kind {
	case model.KindMentorship:
		req, err := f.requests.GetByID(ctx, id)
		if err != nil {
			return nil, translate(err)
		}
		return &mentorshipTarget{f: f, req: req}, nil
	case model.KindGroup:
		gr, err := f.groups.GetRequest(ctx, id)
		if err != nil {
			return nil, translate(err)
		}
		group, err := f.groups.GetGroup(ctx, gr.GroupID)
		if err != nil {
			return nil, translate(err)
		}
		return &groupTarget{f: f, gr: gr, group: group}, nil
	}
	return nil, fmt.Errorf("%w: unknown request kind %q", ErrValidation, kind)
}

// ProcessPayment charges the stored price of an accepted request and, on
// success, writes the booking: a Collaboration replacing a mentorship
// request, or a paid membership for a group request.
//
// A declined charge, gateway error or timeout returns *PaymentError and
// changes nothing but the attempt row; the request stays accepted and its
// slot stays locked.  requires_action returns the intent for the client to
// continue.  Paying an already-converted mentorship request fails with
// ErrNotFound before any charge.
//
// A retry resumes the request's open attempt rather than charging again: a
// captured charge is booked and an intent waiting on the customer is read
// back from the gateway.
func (f *Finalizer) ProcessPayment(ctx context.Context, p model.Principal, in PaymentRequest) (*PaymentOutcome, error) {
	if in.RequestID == "" || in.PaymentMethodRef == "" || in.Email == "" {
		return nil, fmt.Errorf("%w: request_id, payment_method_ref and email are required", ErrValidation)
	}
	t, err := f.loadTarget(ctx, in.Kind, in.RequestID)
	if err != nil {
		return nil, err
	}
	if t.payerID() != p.ID && !p.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := t.ready(); err != nil {
		return nil, err
	}
	amount, currency := t.price()
	if in.AmountMinor != 0 && in.AmountMinor != amount {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrAmountMismatch, amount, in.AmountMinor)
	}

	attempt, err := f.openAttempt(ctx, t, in.AttemptKey, amount, currency)
	if err != nil {
		return nil, err
	}

	// The charge and the booking write run to completion even if the
	// caller goes away.
	base := context.WithoutCancel(ctx)
	if attempt.Status == model.AttemptCaptured {
		return f.settleCaptured(base, t, attempt)
	}
	gctx, cancel := context.WithTimeout(base, f.cfg.GatewayTimeout)
	intent, err := f.advance(gctx, in, t, attempt)
	cancel()
	if err != nil {
		// An intent waiting on the customer may still succeed, so a failed
		// status read leaves its attempt open.
		if attempt.Status != model.AttemptRequiresAction {
			f.mark(base, attempt, model.AttemptFailed, "", err.Error())
		}
		paymentAttemptsTotal.WithLabelValues(string(t.kind()), "error").Inc()
		f.log.Warn("gateway call failed", zap.String("attempt_id", attempt.ID), zap.Error(err))
		pe := &PaymentError{Message: "payment could not be processed", IntentID: attempt.GatewayIntentID, Err: err}
		var ge *payment.Error
		if errors.As(err, &ge) {
			pe.Code, pe.Message = ge.Code, ge.Message
		}
		return nil, pe
	}
	return f.apply(base, t, attempt, intent)
}

// advance moves an attempt forward at the gateway.  An attempt that already
// has an intent waiting on the customer is read back; the gateway would
// replay the original requires_action response for its idempotency key.
// Anything else is charged, which replays safely for a PENDING attempt.
func (f *Finalizer) advance(ctx context.Context, in PaymentRequest, t paymentTarget, a *model.PaymentAttempt) (*payment.Intent, error) {
	if a.Status == model.AttemptRequiresAction && a.GatewayIntentID != "" {
		return f.gateway.GetPaymentIntent(ctx, a.GatewayIntentID)
	}
	return f.charge(ctx, in, t, a)
}

// apply records the gateway result on the attempt and books a succeeded
// charge.
func (f *Finalizer) apply(ctx context.Context, t paymentTarget, a *model.PaymentAttempt, intent *payment.Intent) (*PaymentOutcome, error) {
	switch intent.Status {
	case payment.StatusSucceeded:
		f.mark(ctx, a, model.AttemptCaptured, intent.ID, "")
		paymentAttemptsTotal.WithLabelValues(string(t.kind()), "succeeded").Inc()
		return f.settleCaptured(ctx, t, a)

	case payment.StatusRequiresAction:
		if a.Status != model.AttemptRequiresAction {
			f.mark(ctx, a, model.AttemptRequiresAction, intent.ID, "")
			paymentAttemptsTotal.WithLabelValues(string(t.kind()), "requires_action").Inc()
		}
		return &PaymentOutcome{
			Status:       payment.StatusRequiresAction,
			AttemptID:    a.ID,
			IntentID:     intent.ID,
			ClientSecret: intent.ClientSecret,
		}, nil

	default:
		f.mark(ctx, a, model.AttemptFailed, intent.ID, intent.FailureCode)
		paymentAttemptsTotal.WithLabelValues(string(t.kind()), "declined").Inc()
		f.log.Info("payment declined",
			zap.String("attempt_id", a.ID),
			zap.String("code", intent.FailureCode))
		return nil, &PaymentError{Code: intent.FailureCode, Message: intent.FailureMessage, IntentID: intent.ID}
	}
}

func (f *Finalizer) settleCaptured(ctx context.Context, t paymentTarget, a *model.PaymentAttempt) (*PaymentOutcome, error) {
	out, err := f.settle(ctx, t, a, a.GatewayIntentID)
	if err != nil {
		return nil, err
	}
	out.Status = payment.StatusSucceeded
	return out, nil
}

// openAttempt picks the attempt this call drives.  A known key resumes the
// attempt recorded under it.  Otherwise an attempt of the same request that
// may still end in a charge is resumed, so a retry after a lost response or
// a failed booking write never charges twice.  Only when neither exists is
// a new PENDING attempt recorded.
func (f *Finalizer) openAttempt(ctx context.Context, t paymentTarget, key string, amount int64, currency string) (*model.PaymentAttempt, error) {
	if key != "" {
		existing, err := f.attempts.GetByKey(ctx, attemptKey(t, key))
		if err == nil {
			return resumable(existing)
		}
		if !errors.Is(err, repository.ErrAttemptNotFound) {
			return nil, fmt.Errorf("attempt lookup: %w", err)
		}
	}
	open, err := f.attempts.FindOpenByRequest(ctx, t.kind(), t.requestID())
	if err == nil {
		f.log.Info("resuming open payment attempt",
			zap.String("attempt_id", open.ID),
			zap.String("status", string(open.Status)))
		return open, nil
	}
	if !errors.Is(err, repository.ErrAttemptNotFound) {
		return nil, fmt.Errorf("attempt lookup: %w", err)
	}

	if key == "" {
		key = uuid.NewString()
	}
	if currency == "" {
		currency = f.cfg.DefaultCurrency
	}
	now := f.now()
	a := &model.PaymentAttempt{
		ID:             uuid.NewString(),
		Kind:           t.kind(),
		RequestID:      t.requestID(),
		UserID:         t.payerID(),
		IdempotencyKey: attemptKey(t, key),
		AmountMinor:    amount,
		Currency:       currency,
		Status:         model.AttemptPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := f.attempts.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrDuplicateAttempt) {
			existing, err := f.attempts.GetByKey(ctx, a.IdempotencyKey)
			if err != nil {
				return nil, fmt.Errorf("attempt lookup: %w", err)
			}
			return resumable(existing)
		}
		return nil, fmt.Errorf("record payment attempt: %w", err)
	}
	return a, nil
}

// attemptKey is the gateway idempotency key of one logical attempt.
func attemptKey(t paymentTarget, key string) string {
	return fmt.Sprintf("%s:%s:%s", t.kind(), t.requestID(), key)
}

func resumable(a *model.PaymentAttempt) (*model.PaymentAttempt, error) {
	switch a.Status {
	case model.AttemptPending, model.AttemptRequiresAction, model.AttemptCaptured:
		return a, nil
	case model.AttemptFailed:
		return nil, &PaymentError{Code: a.FailureReason, Message: "this payment attempt already failed; start a new attempt", IntentID: a.GatewayIntentID}
	}
	return nil, fmt.Errorf("%w: payment attempt is %s", ErrInvalidState, a.Status)
}

func (f *Finalizer) charge(ctx context.Context, in PaymentRequest, t paymentTarget, a *model.PaymentAttempt) (*payment.Intent, error) {
	customer, err := f.gateway.FindOrCreateCustomer(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	return f.gateway.CreatePaymentIntent(ctx, payment.IntentRequest{
		AmountMinor:      a.AmountMinor,
		Currency:         a.Currency,
		CustomerRef:      customer,
		PaymentMethodRef: in.PaymentMethodRef,
		IdempotencyKey:   a.IdempotencyKey,
		ReturnURL:        in.ReturnURL,
		Metadata: map[string]string{
			"kind":       string(t.kind()),
			"request_id": t.requestID(),
			"attempt_id": a.ID,
			"user_id":    t.payerID(),
		},
	})
}

// settle writes the booking for a captured charge.  A target that vanished
// or can no longer take the booking marks the attempt ORPHANED for manual
// reconciliation.  Any other failure leaves it CAPTURED for Reconcile.
func (f *Finalizer) settle(ctx context.Context, t paymentTarget, a *model.PaymentAttempt, intentID string) (*PaymentOutcome, error) {
	out, err := t.finalize(ctx, a, intentID, f.now())
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrRequestNotFound),
		errors.Is(err, repository.ErrGroupRequestNotFound),
		errors.Is(err, repository.ErrGroupNotFound),
		errors.Is(err, repository.ErrGroupFull),
		errors.Is(err, repository.ErrStaleState):
		f.mark(ctx, a, model.AttemptOrphaned, intentID, err.Error())
		f.log.Error("captured payment has no booking to settle; manual reconciliation required",
			zap.String("attempt_id", a.ID),
			zap.String("intent_id", intentID),
			zap.String("request_id", t.requestID()),
			zap.Error(err))
		return nil, translate(err)
	default:
		f.log.Error("captured payment not yet booked",
			zap.String("attempt_id", a.ID),
			zap.String("intent_id", intentID),
			zap.Error(err))
		return nil, fmt.Errorf("payment captured but booking not recorded: %w", err)
	}

	out.AttemptID = a.ID
	out.IntentID = intentID
	f.log.Info("payment settled",
		zap.String("attempt_id", a.ID),
		zap.String("kind", string(t.kind())),
		zap.String("request_id", t.requestID()))
	notify(ctx, f.notifier, f.log, t.paidNotice(out))
	return out, nil
}

// Reconcile finishes a CAPTURED attempt whose booking was never written.
// It is safe to call repeatedly.
func (f *Finalizer) Reconcile(ctx context.Context, a *model.PaymentAttempt) error {
	if a.Status != model.AttemptCaptured {
		return nil
	}
	t, err := f.loadTarget(ctx, a.Kind, a.RequestID)
	if errors.Is(err, ErrNotFound) {
		f.mark(ctx, a, model.AttemptOrphaned, a.GatewayIntentID, err.Error())
		f.log.Error("captured payment lost its request; manual reconciliation required",
			zap.String("attempt_id", a.ID),
			zap.String("request_id", a.RequestID))
		return nil
	}
	if err != nil {
		return err
	}
	_, err = f.settle(ctx, t, a, a.GatewayIntentID)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrGroupFull) || errors.Is(err, ErrInvalidState) {
		return nil
	}
	return err
}

// Refresh reads back an attempt waiting on the customer.  A succeeded
// intent is booked and a failed one closes the attempt.  An intent still
// waiting whose attempt was last touched before staleBefore is cancelled at
// the gateway so that its request can expire; a zero staleBefore never
// cancels.
func (f *Finalizer) Refresh(ctx context.Context, a *model.PaymentAttempt, staleBefore time.Time) error {
	if a.Status != model.AttemptRequiresAction || a.GatewayIntentID == "" {
		return nil
	}
	gctx, cancel := context.WithTimeout(ctx, f.cfg.GatewayTimeout)
	defer cancel()
	intent, err := f.gateway.GetPaymentIntent(gctx, a.GatewayIntentID)
	if err != nil {
		return fmt.Errorf("read intent: %w", err)
	}
	if intent.Status == payment.StatusRequiresAction {
		if staleBefore.IsZero() || !a.UpdatedAt.Before(staleBefore) {
			return nil
		}
		// A refusal means the customer finished meanwhile; the next pass
		// reads the intent again.
		if intent, err = f.gateway.CancelPaymentIntent(gctx, a.GatewayIntentID); err != nil {
			return fmt.Errorf("cancel intent: %w", err)
		}
	}

	switch intent.Status {
	case payment.StatusSucceeded:
		f.mark(ctx, a, model.AttemptCaptured, intent.ID, "")
		paymentAttemptsTotal.WithLabelValues(string(a.Kind), "succeeded").Inc()
		f.log.Info("intent completed after customer action", zap.String("attempt_id", a.ID))
		return f.Reconcile(ctx, a)
	case payment.StatusFailed:
		f.mark(ctx, a, model.AttemptFailed, intent.ID, intent.FailureCode)
		paymentAttemptsTotal.WithLabelValues(string(a.Kind), "declined").Inc()
		f.log.Info("intent closed without payment",
			zap.String("attempt_id", a.ID),
			zap.String("code", intent.FailureCode))
	}
	return nil
}

func (f *Finalizer) mark(ctx context.Context, a *model.PaymentAttempt, status model.AttemptStatus, intentID, reason string) {
	if err := f.attempts.MarkOutcome(ctx, a.ID, status, intentID, reason, f.now()); err != nil {
		f.log.Error("record attempt outcome", zap.String("attempt_id", a.ID), zap.String("status", string(status)), zap.Error(err))
		return
	}
	a.Status = status
	if intentID != "" {
		a.GatewayIntentID = intentID
	}
	a.FailureReason = reason
}
