package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"educonnect/internal/auth"
	"educonnect/internal/cache"
	apperrors "educonnect/internal/errors"
	"educonnect/internal/model"
	"educonnect/internal/rbac"
	"educonnect/internal/repository"
)

const (
	studentsCacheKey = "users:students"
	studentsCacheTTL = time.Minute
)

// CreateUserInput provisions a principal.
type CreateUserInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Username  string `json:"username"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Role      string `json:"role" validate:"required"`
	StudentID string `json:"studentId"`
}

// UpdateUserInput edits a principal's profile. Email and secret are not editable here.
type UpdateUserInput struct {
	Username  string           `json:"username"`
	FirstName string           `json:"firstName" validate:"required"`
	LastName  string           `json:"lastName" validate:"required"`
	Role      string           `json:"role" validate:"required"`
	Status    model.UserStatus `json:"status" validate:"omitempty,oneof=active inactive"`
	StudentID string           `json:"studentId"`
}

// UserService exposes principal management for super admins.
type UserService interface {
	List(ctx context.Context, filter repository.UserFilter, page int) (Page[model.User], error)
	Get(ctx context.Context, id string) (*model.User, error)
	Create(ctx context.Context, actorID string, in CreateUserInput) (*model.User, error)
	Update(ctx context.Context, actorID, id string, in UpdateUserInput) (*model.User, error)
	Delete(ctx context.Context, actorID, id string) error
	// Students lists every client user, for attendance and notification forms.
	Students(ctx context.Context) ([]model.User, error)
}

type userService struct {
	repo    repository.UserRepository
	auth    AuthService
	cache   cache.Store
	changes ChangePublisher
	audit   AuditRecorder
	log     *zap.Logger
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(
	repo repository.UserRepository,
	authService AuthService,
	cache cache.Store,
	changes ChangePublisher,
	audit AuditRecorder,
	log *zap.Logger,
) UserService {
	return &userService{repo: repo, auth: authService, cache: cache, changes: changes, audit: audit, log: log}
}

func (s *userService) List(ctx context.Context, filter repository.UserFilter, page int) (Page[model.User], error) {
	if filter.Role != "" {
		role, err := parseAssignableRole(filter.Role)
		if err != nil {
			return Page[model.User]{}, err
		}
		filter.Role = role.String()
	}
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return Page[model.User]{}, fmt.Errorf("list users: %w", err)
	}
	return Paginate(users, page, DefaultPageSize), nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *userService) Create(ctx context.Context, actorID string, in CreateUserInput) (*model.User, error) {
	role, err := parseAssignableRole(in.Role)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = email
	}
	studentID, err := studentIDFor(role, in.StudentID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrUserAlreadyExists
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if err := s.usernameFree(ctx, username, ""); err != nil {
		return nil, err
	}

	user := &model.User{
		Email:     email,
		Username:  username,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      role.String(),
		Status:    model.UserStatusActive,
		StudentID: studentID,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := s.auth.CreateCredential(ctx, user.ID, email, in.Password); err != nil {
		if delErr := s.repo.Delete(ctx, user.ID); delErr != nil {
			s.log.Error("roll back profile after credential failure", zap.String("user_id", user.ID), zap.Error(delErr))
		}
		return nil, err
	}

	s.invalidateStudents(ctx)
	s.audit.Record(ctx, actorID, model.AuditActionCreate, fmt.Sprintf("Created user: %s with role: %s", email, role))
	return user, nil
}

func (s *userService) Update(ctx context.Context, actorID, id string, in UpdateUserInput) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := parseAssignableRole(in.Role)
	if err != nil {
		return nil, err
	}
	studentID, err := studentIDFor(role, in.StudentID)
	if err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = user.Email
	}
	if username != user.Username {
		if err := s.usernameFree(ctx, username, user.ID); err != nil {
			return nil, err
		}
	}
	status := in.Status
	if status == "" {
		status = user.Status
	}

	var changes []model.FieldChange
	changes = diff(changes, "username", user.Username, username)
	changes = diff(changes, "firstName", user.FirstName, strings.TrimSpace(in.FirstName))
	changes = diff(changes, "lastName", user.LastName, strings.TrimSpace(in.LastName))
	changes = diff(changes, "role", user.Role, role.String())
	changes = diff(changes, "status", string(user.Status), string(status))
	changes = diff(changes, "studentId", user.StudentID, studentID)

	accessChanged := user.Role != role.String() || user.Status != status

	user.Username = username
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.Role = role.String()
	user.Status = status
	user.StudentID = studentID
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.invalidateStudents(ctx)
	if accessChanged {
		s.changes.Publish(auth.PrincipalChange{Kind: auth.ProfileChanged, PrincipalID: user.ID})
	}
	s.audit.RecordChange(ctx, actorID, model.AuditActionUpdate, "user", fmt.Sprintf("Updated user: %s", user.Email), changes)
	return user, nil
}

func (s *userService) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return fmt.Errorf("%w: you cannot delete your own account", apperrors.ErrInvalidInput)
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := s.auth.DeleteCredential(ctx, id); err != nil {
		s.log.Error("delete credential", zap.String("user_id", id), zap.Error(err))
	}

	s.invalidateStudents(ctx)
	s.audit.Record(ctx, actorID, model.AuditActionDelete, fmt.Sprintf("Deleted user: %s", user.Email))
	return nil
}

func (s *userService) Students(ctx context.Context) ([]model.User, error) {
	if data, _ := s.cache.Get(ctx, studentsCacheKey); data != nil {
		var cached []model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	students, err := s.repo.List(ctx, repository.UserFilter{Role: rbac.ClientUser.String()})
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	if payload, err := json.Marshal(students); err == nil {
		_ = s.cache.Set(ctx, studentsCacheKey, payload, studentsCacheTTL)
	}
	return students, nil
}

func (s *userService) invalidateStudents(ctx context.Context) {
	_ = s.cache.Delete(ctx, studentsCacheKey)
}

func (s *userService) usernameFree(ctx context.Context, username, selfID string) error {
	other, err := s.repo.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check username: %w", err)
	case other.ID != selfID:
		return apperrors.ErrUsernameTaken
	}
	return nil
}

// parseAssignableRole accepts only an explicit, known role.
func parseAssignableRole(label string) (rbac.Role, error) {
	role, ok, err := rbac.ParseRole(label)
	if err != nil {
		return role, err
	}
	if !ok {
		return role, fmt.Errorf("%w: role is required", apperrors.ErrInvalidRole)
	}
	return role, nil
}

// studentIDFor keeps the student id only for client users, where it is required.
func studentIDFor(role rbac.Role, studentID string) (string, error) {
	if role != rbac.ClientUser {
		return "", nil
	}
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return "", fmt.Errorf("%w: student ID is required for Client User role", apperrors.ErrInvalidInput)
	}
	return studentID, nil
}
