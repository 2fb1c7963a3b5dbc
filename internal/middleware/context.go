package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/tokens"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"

	authKey = "auth"
)

// AuthContext is what a verified request carries. RefreshID is only set on
// refresh-scoped routes.
type AuthContext struct {
	Claims    tokens.Claims
	RefreshID uint
}

type ctxKey struct{}

func setAuth(c echo.Context, a *AuthContext) {
	c.Set(authKey, a)
	req := c.Request()
	c.SetRequest(req.WithContext(context.WithValue(req.Context(), ctxKey{}, a)))
}

// Auth returns the verified context attached by the verifiers.
func Auth(c echo.Context) (*AuthContext, bool) {
	a, ok := c.Get(authKey).(*AuthContext)
	return a, ok && a != nil
}

func AuthFromContext(ctx context.Context) (*AuthContext, bool) {
	a, ok := ctx.Value(ctxKey{}).(*AuthContext)
	return a, ok && a != nil
}
