package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/service"
)

type UsersHTTP struct {
	Svc *service.UserService
}

func (h *UsersHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_create")

	var req service.CreateUserInput
	if err := c.Bind(&req); err != nil {
		l.Warn("create_user_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Create(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, idResponse{ID: user.ID})
}

func (h *UsersHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_update")

	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req service.UpdateUserInput
	if err := c.Bind(&req); err != nil {
		l.Warn("update_user_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Update(ctx, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, idResponse{ID: user.ID})
}

func (h *UsersHTTP) List(c echo.Context) error {
	page, err := h.Svc.List(c.Request().Context(), service.ListUsersQuery{
		Q:           c.QueryParam("q"),
		Role:        c.QueryParam("role"),
		CurrentPage: queryInt(c, "currentPage"),
		PerPage:     queryInt(c, "perPage"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *UsersHTTP) Search(c echo.Context) error {
	page, err := h.Svc.Search(c.Request().Context(), c.QueryParam("q"), queryInt(c, "currentPage"), queryInt(c, "perPage"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *UsersHTTP) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	user, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UsersHTTP) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, idResponse{ID: id})
}
