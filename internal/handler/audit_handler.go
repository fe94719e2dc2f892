package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"educonnect/internal/service"
)

// AuditHandler serves the audit trail.
type AuditHandler struct {
	svc service.AuditService
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(svc service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// ListAudit godoc
// @Summary Browse the audit trail
// @Tags audit
// @Produce json
// @Security BearerAuth
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param userId query string false "Actor ID"
// @Param action query string false "create, update, delete, login or logout"
// @Param page query int false "Page"
// @Success 200 {object} service.AuditListing
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} DeniedResponse
// @Router /audit [get]
func (h *AuditHandler) ListAudit(c echo.Context) error {
	listing, err := h.svc.List(c.Request().Context(), service.AuditQuery{
		From:   c.QueryParam("from"),
		To:     c.QueryParam("to"),
		UserID: c.QueryParam("userId"),
		Action: c.QueryParam("action"),
		Page:   pageParam(c),
	})
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, listing)
}
