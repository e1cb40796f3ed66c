package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/portrait-booth/internal/middleware"
	"github.com/iliyamo/portrait-booth/internal/model"
	"github.com/iliyamo/portrait-booth/internal/service"
)

// AdminHandler serves the manager screens: settings, reports and staff.
type AdminHandler struct {
	Admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	if admin == nil {
		panic("nil service passed to NewAdminHandler")
	}
	return &AdminHandler{Admin: admin}
}

type settingReq struct {
	Enabled *bool `json:"enabled"`
}

type roleReq struct {
	Role string `json:"role"`
}

func settingResp(s model.Setting) echo.Map {
	return echo.Map{"name": s.Name, "value": s.Value, "enabled": s.IsTrue()}
}

// GET /v1/settings/allow-order-creation
func (h *AdminHandler) GetOrderCreation(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	s, err := h.Admin.GetSetting(ctx, middleware.UserFrom(c), model.SettingAllowOrderCreation)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, settingResp(s))
}

// PUT /v1/settings/allow-order-creation
func (h *AdminHandler) PutOrderCreation(c echo.Context) error {
	var req settingReq
	if err := c.Bind(&req); err != nil || req.Enabled == nil {
		return badRequest(c, "enabled (bool) required")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	s, err := h.Admin.SetOrderCreation(ctx, middleware.UserFrom(c), *req.Enabled)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, settingResp(s))
}

// GET /v1/reports/orders-by-status
func (h *AdminHandler) OrdersByStatus(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	rows, err := h.Admin.OrdersByStatus(ctx, middleware.UserFrom(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rows})
}

// GET /v1/reports/collection-by-staff
func (h *AdminHandler) CollectionByStaff(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	rows, err := h.Admin.CollectionByStaff(ctx, middleware.UserFrom(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rows})
}

// GET /v1/reports/orders-by-processor
func (h *AdminHandler) OrdersByProcessor(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	rows, err := h.Admin.OrdersByProcessor(ctx, middleware.UserFrom(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rows})
}

// GET /v1/staff
func (h *AdminHandler) ListStaff(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	users, err := h.Admin.ListStaff(ctx, middleware.UserFrom(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": users})
}

// GET /v1/users?email=
func (h *AdminHandler) FindUser(c echo.Context) error {
	email := strings.TrimSpace(c.QueryParam("email"))
	if email == "" {
		return badRequest(c, "email required")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	u, err := h.Admin.FindUser(ctx, middleware.UserFrom(c), email)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// PUT /v1/users/:id/role
func (h *AdminHandler) ChangeRole(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	role, err := model.ParseRole(strings.TrimSpace(req.Role))
	if err != nil {
		return badRequest(c, "unknown role")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	u, err := h.Admin.ChangeRole(ctx, middleware.UserFrom(c), id, role)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
