package middleware

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/domain"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

type KeyResolver interface {
	Keyfunc(ctx context.Context) jwt.Keyfunc
}

// AccessVerifier checks RS256 access tokens against keys resolved by kid.
// It never touches the database.
type AccessVerifier struct {
	keys KeyResolver
}

func NewAccessVerifier(keys KeyResolver) *AccessVerifier {
	return &AccessVerifier{keys: keys}
}

func (v *AccessVerifier) Verify(ctx context.Context, raw string) (*tokens.AccessClaims, error) {
	return tokens.ParseAccessToken(raw, v.keys.Keyfunc(ctx))
}

func (v *AccessVerifier) RequireAccess(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		l := logging.FromContext(req.Context()).With("mw", "access")

		raw, ok := ExtractToken(req.Header, req.Cookies())
		if !ok {
			return domain.ErrUnauthenticated
		}

		claims, err := v.Verify(req.Context(), raw)
		if err != nil {
			l.Warn("access_token_rejected", "error", err)
			return err
		}

		setAuth(c, &AuthContext{Claims: claims.Claims()})
		return next(c)
	}
}
