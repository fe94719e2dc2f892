package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"educonnect/internal/model"
	"educonnect/internal/repository"
	"educonnect/internal/service"
)

// UserHandler serves user maintenance.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param role query string false "Role label"
// @Param status query string false "active or inactive"
// @Param search query string false "Name, username, email or student id"
// @Param page query int false "Page"
// @Success 200 {object} service.Page[model.User]
// @Failure 403 {object} DeniedResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	filter := repository.UserFilter{
		Role:   c.QueryParam("role"),
		Status: model.UserStatus(c.QueryParam("status")),
		Search: c.QueryParam("search"),
	}
	page, err := h.svc.List(c.Request().Context(), filter, pageParam(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetUser godoc
// @Summary Get user by id
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} model.User
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// CreateUser godoc
// @Summary Provision a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user body service.CreateUserInput true "User payload"
// @Success 201 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users [post]
func (h *UserHandler) CreateUser(c echo.Context) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var in service.CreateUserInput
	if err := bind(c, &in); err != nil {
		return err
	}

	created, err := h.svc.Create(c.Request().Context(), actor.PrincipalID, in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdateUser godoc
// @Summary Edit a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param user body service.UpdateUserInput true "User payload"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(c echo.Context) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var in service.UpdateUserInput
	if err := bind(c, &in); err != nil {
		return err
	}

	updated, err := h.svc.Update(c.Request().Context(), actor.PrincipalID, c.Param("id"), in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteUser godoc
// @Summary Delete a user
// @Description Removes the profile and credential and ends every session of the user.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), actor.PrincipalID, c.Param("id")); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "user deleted"})
}

// ListStudents godoc
// @Summary List students
// @Description Every client user, for attendance and notification forms.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.User
// @Router /students [get]
func (h *UserHandler) ListStudents(c echo.Context) error {
	students, err := h.svc.Students(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, students)
}
