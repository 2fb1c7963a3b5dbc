package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/jwks"
	"github.com/Skotchmaster/auth_service/internal/logging"
)

// JWKSHandler publishes the public half of the signing key.
func JWKSHandler(src jwks.SetSource) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		set, err := src.PublicSet(ctx)
		if err != nil {
			logging.FromContext(ctx).Error("jwks_unavailable", "error", err)
			return err
		}
		c.Response().Header().Set("Cache-Control", "public, max-age=300")
		return c.JSON(http.StatusOK, set)
	}
}
