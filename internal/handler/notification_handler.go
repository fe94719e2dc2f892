package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"educonnect/internal/service"
)

// NotificationHandler serves notifications for both portals.
type NotificationHandler struct {
	svc service.NotificationService
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// ListNotifications godoc
// @Summary List sent notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Success 200 {object} service.Page[model.Notification]
// @Router /notifications [get]
func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	page, err := h.svc.List(c.Request().Context(), pageParam(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetNotification godoc
// @Summary Get notification
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} model.Notification
// @Failure 404 {object} errors.ErrorResponse
// @Router /notifications/{id} [get]
func (h *NotificationHandler) GetNotification(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	n, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, n)
}

// SendNotification godoc
// @Summary Send a notification
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param notification body service.NotificationInput true "Notification"
// @Success 201 {object} model.Notification
// @Failure 400 {object} errors.ErrorResponse
// @Router /notifications [post]
func (h *NotificationHandler) SendNotification(c echo.Context) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var in service.NotificationInput
	if err := bind(c, &in); err != nil {
		return err
	}

	n, err := h.svc.Send(c.Request().Context(), actor.PrincipalID, in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, n)
}

// DeleteNotification godoc
// @Summary Delete notification
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
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
	return c.JSON(http.StatusOK, MessageResponse{Message: "notification deleted"})
}

// Inbox godoc
// @Summary Notifications addressed to the calling student
// @Tags student
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.InboxItem
// @Router /student/notifications [get]
func (h *NotificationHandler) Inbox(c echo.Context) error {
	me, err := principal(c)
	if err != nil {
		return err
	}
	items, err := h.svc.Inbox(c.Request().Context(), me.PrincipalID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags student
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /student/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	me, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.MarkRead(c.Request().Context(), me.PrincipalID, id); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "notification marked as read"})
}
