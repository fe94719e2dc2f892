package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"educonnect/internal/service"
)

// EventHandler serves event scheduling.
type EventHandler struct {
	svc service.EventService
}

// NewEventHandler creates a new event handler.
func NewEventHandler(svc service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// ListEvents godoc
// @Summary List events
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name, description or location"
// @Param page query int false "Page"
// @Success 200 {object} service.Page[model.Event]
// @Failure 403 {object} DeniedResponse
// @Router /events [get]
func (h *EventHandler) ListEvents(c echo.Context) error {
	page, err := h.svc.List(c.Request().Context(), c.QueryParam("search"), pageParam(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetEvent godoc
// @Summary Get event with attendees
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} service.EventDetail
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /events/{id} [get]
func (h *EventHandler) GetEvent(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	detail, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

// CreateEvent godoc
// @Summary Create event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body service.EventInput true "Event"
// @Success 201 {object} model.Event
// @Failure 400 {object} errors.ErrorResponse
// @Router /events [post]
func (h *EventHandler) CreateEvent(c echo.Context) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var in service.EventInput
	if err := bind(c, &in); err != nil {
		return err
	}

	event, err := h.svc.Create(c.Request().Context(), actor.PrincipalID, in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, event)
}

// UpdateEvent godoc
// @Summary Edit event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param event body service.EventInput true "Event"
// @Success 200 {object} model.Event
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /events/{id} [put]
func (h *EventHandler) UpdateEvent(c echo.Context) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var in service.EventInput
	if err := bind(c, &in); err != nil {
		return err
	}

	event, err := h.svc.Update(c.Request().Context(), actor.PrincipalID, id, in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /events/{id} [delete]
func (h *EventHandler) DeleteEvent(c echo.Context) error {
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
	return c.JSON(http.StatusOK, MessageResponse{Message: "event deleted"})
}

// StudentEvents godoc
// @Summary Events for the calling student
// @Tags student
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.StudentEvent
// @Router /student/events [get]
func (h *EventHandler) StudentEvents(c echo.Context) error {
	me, err := principal(c)
	if err != nil {
		return err
	}
	events, err := h.svc.ListForStudent(c.Request().Context(), me.PrincipalID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, events)
}
