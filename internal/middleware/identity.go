package middleware

// identity.go holds the context plumbing shared by the middleware and the
// handlers: JWTAuth stores the caller as a model.Principal and everything
// downstream reads it back through PrincipalFrom.

import (
	"github.com/labstack/echo/v4"

	"github.com/connectsphere/booking-core/internal/model"
)

const principalKey = "principal"

// SetPrincipal stores p on the request context.
func SetPrincipal(c echo.Context, p model.Principal) { c.Set(principalKey, p) }

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok && p.ID != ""
}

// userID returns the caller id for rate keys and logs, "anon" when the
// request is unauthenticated.
func userID(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return p.ID
	}
	return "anon"
}
