package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/domain"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/middleware"
	"github.com/Skotchmaster/auth_service/internal/service"
)

type AuthHTTP struct {
	Svc     *service.AuthService
	Cookies Cookies
}

type idResponse struct {
	ID uint `json:"id"`
}

func (h *AuthHTTP) setSession(c echo.Context, s *service.Session) {
	c.SetCookie(h.Cookies.Access(s.AccessToken))
	c.SetCookie(h.Cookies.Refresh(s.RefreshToken))
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	sess, err := h.Svc.Register(ctx, req)
	if err != nil {
		return err
	}
	h.setSession(c, sess)
	return c.JSON(http.StatusCreated, idResponse{ID: sess.UserID})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req service.LoginInput
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	sess, err := h.Svc.Login(ctx, req)
	if err != nil {
		return err
	}
	h.setSession(c, sess)
	l.Info("login_successful", "user_id", sess.UserID)
	return c.JSON(http.StatusOK, idResponse{ID: sess.UserID})
}

func (h *AuthHTTP) Self(c echo.Context) error {
	a, ok := middleware.Auth(c)
	if !ok {
		return domain.ErrUnauthenticated
	}
	user, err := h.Svc.Self(c.Request().Context(), a.Claims)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	a, ok := middleware.Auth(c)
	if !ok || a.RefreshID == 0 {
		return domain.ErrUnauthenticated
	}

	sess, err := h.Svc.Refresh(c.Request().Context(), a.Claims, a.RefreshID)
	if err != nil {
		return err
	}
	h.setSession(c, sess)
	return c.JSON(http.StatusOK, idResponse{ID: sess.UserID})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	a, ok := middleware.Auth(c)
	if !ok || a.RefreshID == 0 {
		return domain.ErrUnauthenticated
	}

	if err := h.Svc.Logout(ctx, a.Claims, a.RefreshID); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot revoke refreshToken", "error", err)
		return err
	}
	c.SetCookie(h.Cookies.ClearAccess())
	c.SetCookie(h.Cookies.ClearRefresh())
	return c.NoContent(http.StatusOK)
}
