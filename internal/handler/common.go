package handler // handler maps HTTP requests onto the booking services

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/connectsphere/booking-core/internal/middleware"
	"github.com/connectsphere/booking-core/internal/model"
	"github.com/connectsphere/booking-core/internal/service"
)

var validate = validator.New()

// principal returns the caller stored by JWTAuth.
func principal(c echo.Context) (model.Principal, bool) {
	return middleware.PrincipalFrom(c)
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": "unauthorized"})
}

// bind decodes the body into dst and runs its validate tags.  It returns
// the 400 body to send, or nil when dst is usable.
func bind(c echo.Context, dst interface{}) echo.Map {
	if err := c.Bind(dst); err != nil {
		return echo.Map{"error": "invalid request body", "code": "validation_failed"}
	}
	if err := validate.Struct(dst); err != nil {
		return echo.Map{"error": "invalid input", "code": "validation_failed", "details": err.Error()}
	}
	return nil
}

// respondError writes the response for a service error.  Every body carries
// "error" and "code"; unknown errors are logged and hidden behind a 500.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	var conflict *service.ConflictError
	if errors.As(err, &conflict) {
		views := make([]echo.Map, 0, len(conflict.Conflicts))
		for _, r := range conflict.Conflicts {
			views = append(views, requestView(r))
		}
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "confirmation_required", "conflicts": views})
	}
	var declined *service.PaymentError
	if errors.As(err, &declined) {
		body := echo.Map{"error": err.Error(), "code": "payment_declined"}
		if declined.Code != "" {
			body["gateway_code"] = declined.Code
		}
		if declined.IntentID != "" {
			body["intent_id"] = declined.IntentID
		}
		return c.JSON(http.StatusPaymentRequired, body)
	}

	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrSlotLocked):
		status, code = http.StatusConflict, "slot_locked"
	case errors.Is(err, service.ErrGroupFull):
		status, code = http.StatusConflict, "group_full"
	case errors.Is(err, service.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrValidation):
		status, code = http.StatusBadRequest, "validation_failed"
	case errors.Is(err, service.ErrAmountMismatch):
		status, code = http.StatusBadRequest, "amount_mismatch"
	case errors.Is(err, service.ErrInvalidState):
		status, code = http.StatusBadRequest, "invalid_state"
	}
	if status == http.StatusInternalServerError {
		log.Error("unhandled service error", zap.String("route", c.Path()), zap.Error(err))
		return c.JSON(status, echo.Map{"error": "internal error", "code": code})
	}
	return c.JSON(status, echo.Map{"error": err.Error(), "code": code})
}
