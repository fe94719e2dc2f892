package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"educonnect/internal/service"
)

// AttendanceHandler serves attendance marking and history.
type AttendanceHandler struct {
	svc service.AttendanceService
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(svc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{svc: svc}
}

// ListAttendance godoc
// @Summary List attendance records
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param eventId query string false "Event ID"
// @Param userId query string false "Student ID"
// @Param status query string false "present, absent, late or excused"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param page query int false "Page"
// @Success 200 {object} service.Page[service.AttendanceView]
// @Failure 400 {object} errors.ErrorResponse
// @Router /attendance [get]
func (h *AttendanceHandler) ListAttendance(c echo.Context) error {
	q := service.AttendanceQuery{
		UserID: c.QueryParam("userId"),
		Status: c.QueryParam("status"),
		From:   c.QueryParam("from"),
		To:     c.QueryParam("to"),
		Page:   pageParam(c),
	}
	if raw := c.QueryParam("eventId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest("invalid eventId", "INVALID_UUID")
		}
		q.EventID = id
	}

	page, err := h.svc.List(c.Request().Context(), q)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetAttendance godoc
// @Summary Get attendance record
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Success 200 {object} service.AttendanceView
// @Failure 404 {object} errors.ErrorResponse
// @Router /attendance/{id} [get]
func (h *AttendanceHandler) GetAttendance(c echo.Context) error {
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

// MarkAttendance godoc
// @Summary Mark attendance
// @Description Marking a student present also adds them to the event's attendee list.
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param record body service.AttendanceInput true "Attendance"
// @Success 201 {object} model.AttendanceRecord
// @Failure 400 {object} errors.ErrorResponse
// @Router /attendance [post]
func (h *AttendanceHandler) MarkAttendance(c echo.Context) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var in service.AttendanceInput
	if err := bind(c, &in); err != nil {
		return err
	}

	rec, err := h.svc.Mark(c.Request().Context(), actor.PrincipalID, in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

// UpdateAttendance godoc
// @Summary Edit attendance record
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Param record body service.AttendanceInput true "Attendance"
// @Success 200 {object} model.AttendanceRecord
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /attendance/{id} [put]
func (h *AttendanceHandler) UpdateAttendance(c echo.Context) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var in service.AttendanceInput
	if err := bind(c, &in); err != nil {
		return err
	}

	rec, err := h.svc.Update(c.Request().Context(), actor.PrincipalID, id, in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// DeleteAttendance godoc
// @Summary Delete attendance record
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) DeleteAttendance(c echo.Context) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), actor.PrincipalID, id); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "attendance record deleted"})
}

// History godoc
// @Summary Attendance history of the calling student
// @Tags student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.StudentAttendance
// @Router /student/attendance [get]
func (h *AttendanceHandler) History(c echo.Context) error {
	me, err := principal(c)
	if err != nil {
		return err
	}
	hist, err := h.svc.History(c.Request().Context(), me.PrincipalID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, hist)
}
