package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"educonnect/internal/audit"
	"educonnect/internal/auth"
	apperrors "educonnect/internal/errors"
	"educonnect/internal/model"
)

// secretAuth fakes the reauthentication and secret-change calls.
type secretAuth struct {
	AuthService
	current string
	changed string
	weak    bool
}

func (s *secretAuth) Reauthenticate(_ context.Context, _ string, secret string) error {
	if secret != s.current {
		return apperrors.ErrInvalidCredentials
	}
	return nil
}

func (s *secretAuth) ChangeSecret(_ context.Context, _ string, secret string) error {
	if s.weak {
		return apperrors.ErrWeakPassword
	}
	s.changed = secret
	return nil
}

func TestProfileService_ChangePassword(t *testing.T) {
	tests := []struct {
		name          string
		input         PasswordChange
		weak          bool
		expectedError error
	}{
		{name: "changes and audits redacted", input: PasswordChange{CurrentPassword: "Old-Secret-1", NewPassword: strongSecret, ConfirmPassword: strongSecret}},
		{name: "confirmation mismatch", input: PasswordChange{CurrentPassword: "Old-Secret-1", NewPassword: strongSecret, ConfirmPassword: "other"}, expectedError: apperrors.ErrInvalidInput},
		{name: "unchanged secret", input: PasswordChange{CurrentPassword: "Old-Secret-1", NewPassword: "Old-Secret-1", ConfirmPassword: "Old-Secret-1"}, expectedError: apperrors.ErrInvalidInput},
		{name: "wrong current secret", input: PasswordChange{CurrentPassword: "guess", NewPassword: strongSecret, ConfirmPassword: strongSecret}, expectedError: apperrors.ErrInvalidCredentials},
		{name: "policy failure", input: PasswordChange{CurrentPassword: "Old-Secret-1", NewPassword: "weakweak", ConfirmPassword: "weakweak"}, weak: true, expectedError: apperrors.ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &secretAuth{current: "Old-Secret-1", weak: tt.weak}
			spy := &auditSpy{}
			svc := NewProfileService(new(MockUserRepository), fake, &publisherSpy{}, spy)

			err := svc.ChangePassword(context.Background(), "s1", tt.input)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, fake.changed)
				assert.Empty(t, spy.recorded())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strongSecret, fake.changed)
			events := spy.recorded()
			require.Len(t, events, 1)
			assert.Equal(t, "Changed password", events[0].Description)
			assert.Equal(t, []model.FieldChange{{Field: "password", Old: audit.Redacted, New: audit.Redacted}}, events[0].Changes)
		})
	}
}

func TestProfileService_Update(t *testing.T) {
	t.Run("username collision", func(t *testing.T) {
		users := new(MockUserRepository)
		svc := NewProfileService(users, &secretAuth{}, &publisherSpy{}, &auditSpy{})
		users.On("FindByID", mock.Anything, "s1").Return(&model.User{ID: "s1", Email: "ann@example.com", Username: "ann"}, nil)
		users.On("FindByUsername", mock.Anything, "bob").Return(&model.User{ID: "s2"}, nil)

		_, err := svc.Update(context.Background(), "s1", ProfileInput{FirstName: "Ann", LastName: "Lee", Username: "bob"})
		assert.ErrorIs(t, err, apperrors.ErrUsernameTaken)
		users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("empty username falls back to email", func(t *testing.T) {
		users := new(MockUserRepository)
		pub := &publisherSpy{}
		spy := &auditSpy{}
		svc := NewProfileService(users, &secretAuth{}, pub, spy)
		users.On("FindByID", mock.Anything, "s1").Return(&model.User{ID: "s1", Email: "ann@example.com", Username: "ann", FirstName: "Ann", LastName: "Lee"}, nil)
		users.On("FindByUsername", mock.Anything, "ann@example.com").Return(nil, apperrors.ErrNotFound)
		users.On("Update", mock.Anything, mock.Anything).Return(nil)

		user, err := svc.Update(context.Background(), "s1", ProfileInput{FirstName: "Ann", LastName: "Lee"})
		require.NoError(t, err)
		assert.Equal(t, "ann@example.com", user.Username)
		assert.Equal(t, []auth.ChangeKind{auth.ProfileChanged}, pub.kinds())
		require.Len(t, spy.recorded(), 1)
		assert.Equal(t, []model.FieldChange{{Field: "username", Old: "ann", New: "ann@example.com"}}, spy.recorded()[0].Changes)
	})
}
