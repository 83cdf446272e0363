package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CronAuth guards the scheduler trigger with a shared bearer secret.
// Requests are rejected before any handler or repository work happens.
func CronAuth(secret string) echo.MiddlewareFunc {
	expected := []byte(secret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			token, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || len(expected) == 0 ||
				subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}
			return next(c)
		}
	}
}
