package middleware

import (
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/domain"
)

// RequireRole must run after RequireAccess.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, ok := Auth(c)
			if !ok {
				return domain.ErrUnauthenticated
			}
			if !slices.Contains(roles, a.Claims.Role) {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
