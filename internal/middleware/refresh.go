package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/domain"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

type RefreshParser interface {
	ParseRefreshToken(raw string) (*tokens.RefreshClaims, error)
}

type RefreshLookup interface {
	FindRefreshByID(ctx context.Context, id uint) (*models.RefreshToken, error)
}

type RefreshVerifier struct {
	parser RefreshParser
	store  RefreshLookup
}

func NewRefreshVerifier(parser RefreshParser, store RefreshLookup) *RefreshVerifier {
	return &RefreshVerifier{parser: parser, store: store}
}

func (v *RefreshVerifier) parse(c echo.Context) (*tokens.RefreshClaims, uint, error) {
	cookie, err := c.Cookie(RefreshCookie)
	if err != nil || cookie.Value == "" {
		return nil, 0, domain.ErrUnauthenticated
	}
	claims, err := v.parser.ParseRefreshToken(cookie.Value)
	if err != nil {
		return nil, 0, err
	}
	id, err := claims.RefreshID()
	if err != nil {
		return nil, 0, err
	}
	return claims, id, nil
}

// RequireRefresh admits a request only while the token's row still exists.
func (v *RefreshVerifier) RequireRefresh(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("mw", "refresh")

		claims, id, err := v.parse(c)
		if err != nil {
			if !errors.Is(err, domain.ErrUnauthenticated) {
				l.Warn("refresh_token_rejected", "error", err)
			}
			return err
		}

		row, err := v.store.FindRefreshByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				l.Warn("refresh_token_revoked", "refresh_id", id)
				return fmt.Errorf("%w: refresh id %d", domain.ErrTokenRevoked, id)
			}
			return err
		}
		if strconv.FormatUint(uint64(row.UserID), 10) != claims.Subject {
			l.Warn("refresh_token_subject_mismatch", "refresh_id", id)
			return domain.ErrTokenRevoked
		}

		setAuth(c, &AuthContext{Claims: claims.Claims(), RefreshID: id})
		return next(c)
	}
}

// ParseRefresh only checks the signature. When an access context is already
// attached its claims are kept and the refresh id is added to it; the refresh
// token must then belong to the same subject.
func (v *RefreshVerifier) ParseRefresh(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, id, err := v.parse(c)
		if err != nil {
			return err
		}

		a := &AuthContext{Claims: claims.Claims()}
		if existing, ok := Auth(c); ok {
			if existing.Claims.Subject != claims.Subject {
				logging.FromContext(c.Request().Context()).Warn("refresh_token_subject_mismatch", "mw", "refresh", "refresh_id", id)
				return domain.ErrTokenRevoked
			}
			a.Claims = existing.Claims
		}
		a.RefreshID = id
		setAuth(c, a)
		return next(c)
	}
}
