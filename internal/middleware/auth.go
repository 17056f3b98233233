// Package middleware contains reusable HTTP middleware: cookie identity,
// Redis response caching and Redis token-bucket rate limiting.
package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/hanyue/activity-seats/internal/utils"
)

// CookieAuth reads the auth_token cookie, validates the JWT inside it and
// injects the caller's identity into the request context as "user_id"
// (uint64) and "is_admin" (bool). It never rejects: a missing or invalid
// cookie simply leaves the context unset, and each handler decides whether
// anonymous access is acceptable. That keeps public endpoints (listing,
// detail, health) on the same middleware chain as protected ones.
func CookieAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie("auth_token")
			if err != nil || cookie.Value == "" {
				return next(c)
			}
			ident, err := utils.ParseAuthToken(secret, cookie.Value)
			if err != nil {
				// expired or tampered token; treat as anonymous
				return next(c)
			}
			c.Set("user_id", ident.UserID)
			c.Set("is_admin", ident.IsAdmin)
			return next(c)
		}
	}
}
