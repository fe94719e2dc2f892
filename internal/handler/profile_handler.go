package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"educonnect/internal/service"
)

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	svc service.ProfileService
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(svc service.ProfileService) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

// GetProfile godoc
// @Summary Own profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /profile [get]
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	me, err := principal(c)
	if err != nil {
		return err
	}
	user, err := h.svc.Get(c.Request().Context(), me.PrincipalID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile godoc
// @Summary Edit own profile
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body service.ProfileInput true "Profile"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /profile [put]
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	me, err := principal(c)
	if err != nil {
		return err
	}
	var in service.ProfileInput
	if err := bind(c, &in); err != nil {
		return err
	}

	user, err := h.svc.Update(c.Request().Context(), me.PrincipalID, in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// ChangePassword godoc
// @Summary Change own password
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.PasswordChange true "Passwords"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /profile/password [post]
func (h *ProfileHandler) ChangePassword(c echo.Context) error {
	me, err := principal(c)
	if err != nil {
		return err
	}
	var in service.PasswordChange
	if err := bind(c, &in); err != nil {
		return err
	}

	if err := h.svc.ChangePassword(c.Request().Context(), me.PrincipalID, in); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}
