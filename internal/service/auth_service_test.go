package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"educonnect/internal/auth"
	apperrors "educonnect/internal/errors"
	"educonnect/internal/model"
)

const strongSecret = "K9#mQz!vL2@pX7$w"

type authFixture struct {
	users     *MockUserRepository
	creds     *MockCredentialRepository
	tokens    *MockTokenStore
	revoker   *MockRevoker
	audit     *auditSpy
	publisher *publisherSpy
	jwt       *auth.JWTService
	svc       *authService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:     new(MockUserRepository),
		creds:     new(MockCredentialRepository),
		tokens:    new(MockTokenStore),
		revoker:   new(MockRevoker),
		audit:     &auditSpy{},
		publisher: &publisherSpy{},
		jwt:       auth.NewJWTService("test-secret", 15*time.Minute, 24*time.Hour),
	}
	f.svc = NewAuthService(f.users, f.creds, f.jwt, f.tokens, f.revoker, f.publisher, f.audit, zap.NewNop()).(*authService)
	return f
}

func hashFor(t *testing.T, secret string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthService_SignIn(t *testing.T) {
	student := &model.User{ID: "stu-1", Email: "ann@example.com", Username: "ann", Role: "Client User", Status: model.UserStatusActive}
	admin := &model.User{ID: "adm-1", Email: "boss@example.com", Role: "Admin", Status: model.UserStatusActive}

	tests := []struct {
		name          string
		identifier    string
		secret        string
		portal        Portal
		setupMock     func(t *testing.T, f *authFixture)
		expectedError error
	}{
		{
			name:       "student signs in with email",
			identifier: "Ann@Example.com",
			secret:     strongSecret,
			portal:     PortalStudent,
			setupMock: func(t *testing.T, f *authFixture) {
				f.creds.On("FindByEmail", mock.Anything, "ann@example.com").
					Return(&model.Credential{PrincipalID: "stu-1", Email: "ann@example.com", PasswordHash: hashFor(t, strongSecret)}, nil)
				f.users.On("FindByID", mock.Anything, "stu-1").Return(student, nil)
				f.tokens.On("StoreRefreshToken", mock.Anything, mock.Anything, "stu-1", "ann@example.com", 24*time.Hour).Return(nil)
			},
		},
		{
			name:       "student signs in with username",
			identifier: "ann",
			secret:     strongSecret,
			portal:     PortalStudent,
			setupMock: func(t *testing.T, f *authFixture) {
				f.users.On("FindByUsername", mock.Anything, "ann").Return(student, nil)
				f.creds.On("FindByEmail", mock.Anything, "ann@example.com").
					Return(&model.Credential{PrincipalID: "stu-1", Email: "ann@example.com", PasswordHash: hashFor(t, strongSecret)}, nil)
				f.users.On("FindByID", mock.Anything, "stu-1").Return(student, nil)
				f.tokens.On("StoreRefreshToken", mock.Anything, mock.Anything, "stu-1", "ann@example.com", 24*time.Hour).Return(nil)
			},
		},
		{
			name:       "unknown username",
			identifier: "ghost",
			secret:     strongSecret,
			portal:     PortalStudent,
			setupMock: func(t *testing.T, f *authFixture) {
				f.users.On("FindByUsername", mock.Anything, "ghost").Return(nil, apperrors.ErrNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:       "wrong secret",
			identifier: "ann@example.com",
			secret:     "nope",
			portal:     PortalStudent,
			setupMock: func(t *testing.T, f *authFixture) {
				f.creds.On("FindByEmail", mock.Anything, "ann@example.com").
					Return(&model.Credential{PrincipalID: "stu-1", PasswordHash: hashFor(t, strongSecret)}, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:       "credential without profile",
			identifier: "ann@example.com",
			secret:     strongSecret,
			portal:     PortalStudent,
			setupMock: func(t *testing.T, f *authFixture) {
				f.creds.On("FindByEmail", mock.Anything, "ann@example.com").
					Return(&model.Credential{PrincipalID: "stu-1", PasswordHash: hashFor(t, strongSecret)}, nil)
				f.users.On("FindByID", mock.Anything, "stu-1").Return(nil, apperrors.ErrNotFound)
			},
			expectedError: apperrors.ErrProfileMissing,
		},
		{
			name:       "inactive account",
			identifier: "ann@example.com",
			secret:     strongSecret,
			portal:     PortalStudent,
			setupMock: func(t *testing.T, f *authFixture) {
				f.creds.On("FindByEmail", mock.Anything, "ann@example.com").
					Return(&model.Credential{PrincipalID: "stu-1", PasswordHash: hashFor(t, strongSecret)}, nil)
				inactive := *student
				inactive.Status = model.UserStatusInactive
				f.users.On("FindByID", mock.Anything, "stu-1").Return(&inactive, nil)
			},
			expectedError: apperrors.ErrAccountInactive,
		},
		{
			name:       "admin on the student portal",
			identifier: "boss@example.com",
			secret:     strongSecret,
			portal:     PortalStudent,
			setupMock: func(t *testing.T, f *authFixture) {
				f.creds.On("FindByEmail", mock.Anything, "boss@example.com").
					Return(&model.Credential{PrincipalID: "adm-1", PasswordHash: hashFor(t, strongSecret)}, nil)
				f.users.On("FindByID", mock.Anything, "adm-1").Return(admin, nil)
			},
			expectedError: apperrors.ErrPortalMismatch,
		},
		{
			name:       "student on the admin portal",
			identifier: "ann@example.com",
			secret:     strongSecret,
			portal:     PortalAdmin,
			setupMock: func(t *testing.T, f *authFixture) {
				f.creds.On("FindByEmail", mock.Anything, "ann@example.com").
					Return(&model.Credential{PrincipalID: "stu-1", PasswordHash: hashFor(t, strongSecret)}, nil)
				f.users.On("FindByID", mock.Anything, "stu-1").Return(student, nil)
			},
			expectedError: apperrors.ErrPortalMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture()
			tt.setupMock(t, f)

			res, err := f.svc.SignIn(context.Background(), tt.identifier, tt.secret, tt.portal)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, res)
				assert.Empty(t, f.audit.recorded())
				assert.Empty(t, f.publisher.kinds())
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, res.AccessToken)
				assert.NotEmpty(t, res.RefreshToken)
				assert.Equal(t, "stu-1", res.User.ID)

				claims, err := f.jwt.ValidateToken(res.AccessToken)
				require.NoError(t, err)
				assert.Equal(t, "Client User", claims.Role)

				events := f.audit.recorded()
				require.Len(t, events, 1)
				assert.Equal(t, model.AuditActionLogin, events[0].Action)
				assert.Equal(t, []auth.ChangeKind{auth.SignedIn}, f.publisher.kinds())
			}

			f.users.AssertExpectations(t)
			f.creds.AssertExpectations(t)
			f.tokens.AssertExpectations(t)
		})
	}
}

func TestAuthService_SignOut(t *testing.T) {
	f := newAuthFixture()
	_, access, err := f.jwt.GenerateAccessToken("stu-1", "ann@example.com", "Client User")
	require.NoError(t, err)
	refreshID, refresh, err := f.jwt.GenerateRefreshToken("stu-1", "ann@example.com")
	require.NoError(t, err)
	claims, err := f.jwt.ValidateToken(access)
	require.NoError(t, err)

	f.tokens.On("BlacklistAccessToken", mock.Anything, claims.ID, mock.AnythingOfType("time.Duration")).Return(nil)
	f.tokens.On("DeleteRefreshToken", mock.Anything, refreshID).Return(nil)

	require.NoError(t, f.svc.SignOut(context.Background(), claims, refresh))

	f.tokens.AssertExpectations(t)
	events := f.audit.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, model.AuditActionLogout, events[0].Action)
	assert.Equal(t, []auth.ChangeKind{auth.SignedOut}, f.publisher.kinds())
}

func TestAuthService_SignOutRejectsForeignRefreshToken(t *testing.T) {
	f := newAuthFixture()
	_, access, _ := f.jwt.GenerateAccessToken("stu-1", "ann@example.com", "Client User")
	_, foreign, _ := f.jwt.GenerateRefreshToken("stu-2", "bob@example.com")
	claims, err := f.jwt.ValidateToken(access)
	require.NoError(t, err)
	f.tokens.On("BlacklistAccessToken", mock.Anything, claims.ID, mock.Anything).Return(nil)

	err = f.svc.SignOut(context.Background(), claims, foreign)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
}

func TestAuthService_ForceSignOut(t *testing.T) {
	f := newAuthFixture()
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }
	f.tokens.On("RevokeIssuedBefore", mock.Anything, "stu-1", fixed, 24*time.Hour).Return(nil)

	require.NoError(t, f.svc.ForceSignOut(context.Background(), "stu-1"))
	f.tokens.AssertExpectations(t)
	assert.Equal(t, []auth.ChangeKind{auth.SignedOut}, f.publisher.kinds())
}

func TestAuthService_Refresh(t *testing.T) {
	student := &model.User{ID: "stu-1", Email: "ann@example.com", Role: "student"}

	t.Run("issues a new access token", func(t *testing.T) {
		f := newAuthFixture()
		id, refresh, err := f.jwt.GenerateRefreshToken("stu-1", "ann@example.com")
		require.NoError(t, err)
		f.tokens.On("GetRefreshToken", mock.Anything, id).Return("stu-1", "ann@example.com", nil)
		f.tokens.On("RevokedBefore", mock.Anything, "stu-1").Return(time.Time{}, nil)
		f.users.On("FindByID", mock.Anything, "stu-1").Return(student, nil)

		tokens, err := f.svc.Refresh(context.Background(), refresh)
		require.NoError(t, err)
		claims, err := f.jwt.ValidateToken(tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "Client User", claims.Role)
		assert.Empty(t, tokens.RefreshToken)
		assert.Equal(t, []auth.ChangeKind{auth.Refreshed}, f.publisher.kinds())
	})

	t.Run("revoked refresh token is refused", func(t *testing.T) {
		f := newAuthFixture()
		id, refresh, err := f.jwt.GenerateRefreshToken("stu-1", "ann@example.com")
		require.NoError(t, err)
		f.tokens.On("GetRefreshToken", mock.Anything, id).Return("stu-1", "ann@example.com", nil)
		f.tokens.On("RevokedBefore", mock.Anything, "stu-1").Return(time.Now().Add(time.Hour), nil)
		f.tokens.On("DeleteRefreshToken", mock.Anything, id).Return(nil)

		_, err = f.svc.Refresh(context.Background(), refresh)
		assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
		assert.Empty(t, f.publisher.kinds())
	})

	t.Run("refresh token issued at the revocation instant is refused", func(t *testing.T) {
		f := newAuthFixture()
		id, refresh, err := f.jwt.GenerateRefreshToken("stu-1", "ann@example.com")
		require.NoError(t, err)
		claims, err := f.jwt.ValidateToken(refresh)
		require.NoError(t, err)
		f.tokens.On("GetRefreshToken", mock.Anything, id).Return("stu-1", "ann@example.com", nil)
		f.tokens.On("RevokedBefore", mock.Anything, "stu-1").Return(claims.IssuedAt.Time, nil)
		f.tokens.On("DeleteRefreshToken", mock.Anything, id).Return(nil)

		_, err = f.svc.Refresh(context.Background(), refresh)
		assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	})

	t.Run("unknown refresh token is refused", func(t *testing.T) {
		f := newAuthFixture()
		id, refresh, _ := f.jwt.GenerateRefreshToken("stu-1", "ann@example.com")
		f.tokens.On("GetRefreshToken", mock.Anything, id).Return("", "", auth.ErrRefreshTokenNotFound)

		_, err := f.svc.Refresh(context.Background(), refresh)
		assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	})

	t.Run("garbage is refused", func(t *testing.T) {
		f := newAuthFixture()
		_, err := f.svc.Refresh(context.Background(), "not-a-token")
		assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	})
}

func TestAuthService_ChangeSecret(t *testing.T) {
	t.Run("weak secret is refused with the first policy error", func(t *testing.T) {
		f := newAuthFixture()
		err := f.svc.ChangeSecret(context.Background(), "stu-1", "short")
		assert.ErrorIs(t, err, apperrors.ErrWeakPassword)
		assert.Contains(t, err.Error(), "8")
		f.creds.AssertNotCalled(t, "UpdateHash", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("strong secret is hashed", func(t *testing.T) {
		f := newAuthFixture()
		var stored string
		f.creds.On("UpdateHash", mock.Anything, "stu-1", mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { stored = args.String(2) }).
			Return(nil)

		require.NoError(t, f.svc.ChangeSecret(context.Background(), "stu-1", strongSecret))
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored), []byte(strongSecret)))
	})
}

func TestAuthService_Reauthenticate(t *testing.T) {
	f := newAuthFixture()
	f.creds.On("FindByPrincipalID", mock.Anything, "stu-1").Return(&model.Credential{PasswordHash: hashFor(t, strongSecret)}, nil)

	assert.NoError(t, f.svc.Reauthenticate(context.Background(), "stu-1", strongSecret))
	assert.ErrorIs(t, f.svc.Reauthenticate(context.Background(), "stu-1", "wrong"), apperrors.ErrInvalidCredentials)
}

func TestAuthService_CreateCredential(t *testing.T) {
	t.Run("duplicate email", func(t *testing.T) {
		f := newAuthFixture()
		f.creds.On("FindByEmail", mock.Anything, "ann@example.com").Return(&model.Credential{}, nil)
		err := f.svc.CreateCredential(context.Background(), "stu-1", "ann@example.com", strongSecret)
		assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
	})

	t.Run("stores a bcrypt hash", func(t *testing.T) {
		f := newAuthFixture()
		f.creds.On("FindByEmail", mock.Anything, "ann@example.com").Return(nil, apperrors.ErrNotFound)
		f.creds.On("Create", mock.Anything, mock.MatchedBy(func(c *model.Credential) bool {
			return c.PrincipalID == "stu-1" && bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(strongSecret)) == nil
		})).Return(nil)

		require.NoError(t, f.svc.CreateCredential(context.Background(), "stu-1", "ann@example.com", strongSecret))
		f.creds.AssertExpectations(t)
	})
}

func TestAuthService_DeleteCredential(t *testing.T) {
	f := newAuthFixture()
	f.creds.On("Delete", mock.Anything, "stu-1").Return(nil)
	f.revoker.On("Revoke", mock.Anything, "stu-1").Return(errors.New("provider down"))
	f.tokens.On("RevokeIssuedBefore", mock.Anything, "stu-1", mock.Anything, 24*time.Hour).Return(nil)

	require.NoError(t, f.svc.DeleteCredential(context.Background(), "stu-1"), "provider failures are logged, not returned")
	f.creds.AssertExpectations(t)
	f.revoker.AssertExpectations(t)
	f.tokens.AssertExpectations(t)
	assert.Equal(t, []auth.ChangeKind{auth.SignedOut}, f.publisher.kinds())
}
