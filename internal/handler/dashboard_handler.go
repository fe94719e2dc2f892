package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"educonnect/internal/rbac"
	"educonnect/internal/service"
)

// DashboardHandler serves the landing pages of both portals.
type DashboardHandler struct {
	svc service.DashboardService
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(svc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// AdminDashboard godoc
// @Summary Admin dashboard
// @Description Counts and recent activity. Super admins see everyone's activity, admins their own.
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.AdminDashboard
// @Failure 403 {object} DeniedResponse
// @Router /admin/dashboard [get]
func (h *DashboardHandler) AdminDashboard(c echo.Context) error {
	me, err := principal(c)
	if err != nil {
		return err
	}
	role := rbac.Admin
	if rec, ok := SessionFrom(c); ok {
		role = rec.Role
	}

	d, err := h.svc.Admin(c.Request().Context(), me.PrincipalID, role)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, d)
}

// StudentDashboard godoc
// @Summary Student dashboard
// @Tags student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.StudentDashboard
// @Failure 403 {object} DeniedResponse
// @Router /student/dashboard [get]
func (h *DashboardHandler) StudentDashboard(c echo.Context) error {
	me, err := principal(c)
	if err != nil {
		return err
	}
	d, err := h.svc.Student(c.Request().Context(), me.PrincipalID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, d)
}
