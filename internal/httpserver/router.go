package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/jwks"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/middleware"
	"github.com/Skotchmaster/auth_service/internal/models"
)

type Deps struct {
	Auth    *AuthHTTP
	Users   *UsersHTTP
	Tenants *TenantsHTTP

	Access  *middleware.AccessVerifier
	Refresh *middleware.RefreshVerifier
	Keys    jwks.SetSource

	// Ready reports whether the backing stores answer. Nil means always ready.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				logging.FromContext(c.Request().Context()).Warn("not_ready", "error", err)
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/.well-known/jwks.json", JWKSHandler(d.Keys))

	auth := e.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.GET("/self", d.Auth.Self, d.Access.RequireAccess)
	auth.POST("/refresh", d.Auth.Refresh, d.Refresh.RequireRefresh)
	auth.POST("/logout", d.Auth.Logout, d.Access.RequireAccess, d.Refresh.ParseRefresh)

	admin := middleware.RequireRole(models.RoleAdmin)

	users := e.Group("/users", d.Access.RequireAccess)
	users.POST("", d.Users.Create, admin)
	users.GET("", d.Users.List)
	users.GET("/search", d.Users.Search, admin)
	users.GET("/:id", d.Users.Get, admin)
	users.PATCH("/:id", d.Users.Update, admin)
	users.DELETE("/:id", d.Users.Delete, admin)

	tenants := e.Group("/tenants")
	tenants.GET("", d.Tenants.List)
	tenants.POST("", d.Tenants.Create, d.Access.RequireAccess, admin)
	tenants.GET("/:id", d.Tenants.Get, d.Access.RequireAccess, admin)
	tenants.PATCH("/:id", d.Tenants.Update, d.Access.RequireAccess, admin)
	tenants.DELETE("/:id", d.Tenants.Delete, d.Access.RequireAccess, admin)
}
