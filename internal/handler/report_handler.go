package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"educonnect/internal/service"
)

// ReportHandler serves report generation.
type ReportHandler struct {
	svc service.ReportService
}

// NewReportHandler creates a new report handler.
func NewReportHandler(svc service.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// GenerateReport godoc
// @Summary Generate and store a report
// @Tags reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param report body service.ReportInput true "Report parameters"
// @Success 201 {object} model.Report
// @Failure 400 {object} errors.ErrorResponse
// @Router /reports [post]
func (h *ReportHandler) GenerateReport(c echo.Context) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var in service.ReportInput
	if err := bind(c, &in); err != nil {
		return err
	}

	report, err := h.svc.Generate(c.Request().Context(), actor.PrincipalID, in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, report)
}

// ListReports godoc
// @Summary List stored reports
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Success 200 {object} service.Page[service.ReportView]
// @Router /reports [get]
func (h *ReportHandler) ListReports(c echo.Context) error {
	page, err := h.svc.List(c.Request().Context(), pageParam(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetReport godoc
// @Summary Get stored report
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Success 200 {object} service.ReportView
// @Failure 404 {object} errors.ErrorResponse
// @Router /reports/{id} [get]
func (h *ReportHandler) GetReport(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	view, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, view)
}
