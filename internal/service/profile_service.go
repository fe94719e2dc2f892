package service

import (
	"context"
	"fmt"
	"strings"

	"educonnect/internal/audit"
	"educonnect/internal/auth"
	apperrors "educonnect/internal/errors"
	"educonnect/internal/model"
	"educonnect/internal/repository"
)

// ProfileInput edits the caller's own profile.
type ProfileInput struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Username  string `json:"username"`
}

// PasswordChange replaces the caller's own secret.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// ProfileService manages the caller's own profile.
type ProfileService interface {
	Get(ctx context.Context, principalID string) (*model.User, error)
	Update(ctx context.Context, principalID string, in ProfileInput) (*model.User, error)
	ChangePassword(ctx context.Context, principalID string, in PasswordChange) error
}

type profileService struct {
	users   repository.UserRepository
	auth    AuthService
	changes ChangePublisher
	audit   AuditRecorder
}

// NewProfileService creates a new profile service.
func NewProfileService(users repository.UserRepository, authService AuthService, changes ChangePublisher, audit AuditRecorder) ProfileService {
	return &profileService{users: users, auth: authService, changes: changes, audit: audit}
}

func (s *profileService) Get(ctx context.Context, principalID string) (*model.User, error) {
	return s.users.FindByID(ctx, principalID)
}

func (s *profileService) Update(ctx context.Context, principalID string, in ProfileInput) (*model.User, error) {
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" || last == "" {
		return nil, fmt.Errorf("%w: first and last name are required", apperrors.ErrInvalidInput)
	}
	user, err := s.users.FindByID(ctx, principalID)
	if err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = user.Email
	}
	if username != user.Username {
		other, err := s.users.FindByUsername(ctx, username)
		if err == nil && other.ID != user.ID {
			return nil, apperrors.ErrUsernameTaken
		}
		if err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("check username: %w", err)
		}
	}

	var changes []model.FieldChange
	changes = diff(changes, "firstName", user.FirstName, first)
	changes = diff(changes, "lastName", user.LastName, last)
	changes = diff(changes, "username", user.Username, username)

	user.FirstName, user.LastName, user.Username = first, last, username
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.changes.Publish(auth.PrincipalChange{Kind: auth.ProfileChanged, PrincipalID: user.ID})
	s.audit.RecordChange(ctx, principalID, model.AuditActionUpdate, "profile", "Updated own profile information", changes)
	return user, nil
}

func (s *profileService) ChangePassword(ctx context.Context, principalID string, in PasswordChange) error {
	switch {
	case in.NewPassword != in.ConfirmPassword:
		return fmt.Errorf("%w: passwords do not match", apperrors.ErrInvalidInput)
	case in.NewPassword == in.CurrentPassword:
		return fmt.Errorf("%w: new password must be different from current password", apperrors.ErrInvalidInput)
	}
	if err := s.auth.Reauthenticate(ctx, principalID, in.CurrentPassword); err != nil {
		return err
	}
	if err := s.auth.ChangeSecret(ctx, principalID, in.NewPassword); err != nil {
		return err
	}

	s.audit.RecordChange(ctx, principalID, model.AuditActionUpdate, "profile", "Changed password", []model.FieldChange{
		{Field: "password", Old: audit.Redacted, New: audit.Redacted},
	})
	return nil
}
