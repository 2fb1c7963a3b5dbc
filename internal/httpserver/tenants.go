package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/service"
)

type TenantsHTTP struct {
	Svc *service.TenantService
}

func (h *TenantsHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "tenants_create")

	var req service.TenantInput
	if err := c.Bind(&req); err != nil {
		l.Warn("create_tenant_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	t, err := h.Svc.Create(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, idResponse{ID: t.ID})
}

func (h *TenantsHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "tenants_update")

	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req service.TenantInput
	if err := c.Bind(&req); err != nil {
		l.Warn("update_tenant_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	t, err := h.Svc.Update(ctx, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TenantsHTTP) List(c echo.Context) error {
	page, err := h.Svc.List(c.Request().Context(), c.QueryParam("q"), queryInt(c, "currentPage"), queryInt(c, "perPage"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *TenantsHTTP) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	t, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *TenantsHTTP) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, idResponse{ID: id})
}
