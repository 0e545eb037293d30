package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/connectsphere/booking-core/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the caller (sub and role claims) as a model.Principal.  The secret
// must match the one used when issuing tokens.  Handlers read the caller
// with PrincipalFrom.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token", "code": "unauthorized"})
			}
			p, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error(), "code": "unauthorized"})
			}
			SetPrincipal(c, p)
			return next(c)
		}
	}
}
