package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/connectsphere/booking-core/internal/model"
	"github.com/connectsphere/booking-core/internal/payment"
	"github.com/connectsphere/booking-core/internal/service"
)

// PaymentService is implemented by *service.Finalizer.
type PaymentService interface {
	ProcessPayment(ctx context.Context, p model.Principal, in service.PaymentRequest) (*service.PaymentOutcome, error)
	Collaboration(ctx context.Context, p model.Principal, id string) (*model.Collaboration, error)
	Collaborations(ctx context.Context, p model.Principal) ([]*model.Collaboration, error)
}

// PaymentHandler charges accepted requests and serves the resulting
// collaborations.
type PaymentHandler struct {
	Payments PaymentService
	Log      *zap.Logger
}

func NewPaymentHandler(payments PaymentService, log *zap.Logger) *PaymentHandler {
	if payments == nil {
		panic("nil payment service passed to NewPaymentHandler")
	}
	return &PaymentHandler{Payments: payments, Log: log}
}

// paymentBody is the tagged union accepted by POST /v1/payments: kind
// selects whether request_id names a mentorship or a group request.
type paymentBody struct {
	Kind             string `json:"kind" validate:"required,oneof=mentorship group"`
	RequestID        string `json:"request_id" validate:"required"`
	PaymentMethodRef string `json:"payment_method_ref" validate:"required"`
	AmountMinor      int64  `json:"amount_minor" validate:"gte=0"`
	Email            string `json:"email" validate:"required,email"`
	ReturnURL        string `json:"return_url" validate:"omitempty,url"`
}

// Pay handles POST /v1/payments.  An Idempotency-Key header names the
// attempt: resending the same key after a timeout or a 3-D Secure challenge
// resumes that attempt instead of charging again.
func (h *PaymentHandler) Pay(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}
	var body paymentBody
	if msg := bind(c, &body); msg != nil {
		return c.JSON(http.StatusBadRequest, msg)
	}
	out, err := h.Payments.ProcessPayment(c.Request().Context(), p, service.PaymentRequest{
		Kind:             model.RequestKind(body.Kind),
		RequestID:        body.RequestID,
		PaymentMethodRef: body.PaymentMethodRef,
		AmountMinor:      body.AmountMinor,
		Email:            body.Email,
		ReturnURL:        body.ReturnURL,
		AttemptKey:       strings.TrimSpace(c.Request().Header.Get("Idempotency-Key")),
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	status := http.StatusCreated
	if out.Status == payment.StatusRequiresAction {
		status = http.StatusAccepted
	}
	return c.JSON(status, outcomeView(out))
}

// ListCollaborations handles GET /v1/collaborations.
func (h *PaymentHandler) ListCollaborations(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}
	cs, err := h.Payments.Collaborations(c.Request().Context(), p)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	out := make([]echo.Map, 0, len(cs))
	for _, col := range cs {
		out = append(out, collaborationView(col))
	}
	return c.JSON(http.StatusOK, echo.Map{"collaborations": out})
}

// GetCollaboration handles GET /v1/collaborations/:id.
func (h *PaymentHandler) GetCollaboration(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return unauthorized(c)
	}
	col, err := h.Payments.Collaboration(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, collaborationView(col))
}
