package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"educonnect/internal/auth"
	apperrors "educonnect/internal/errors"
	"educonnect/internal/model"
	"educonnect/internal/password"
	"educonnect/internal/rbac"
	"educonnect/internal/repository"
)

const bcryptCost = 10

// Portal is the sign-in surface a principal used.
type Portal string

const (
	PortalStudent Portal = "student"
	PortalAdmin   Portal = "admin"
)

// Tokens is a freshly issued token pair.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}

// SignInResult is returned on a successful sign-in.
type SignInResult struct {
	Tokens
	User *model.User `json:"user"`
	Role rbac.Role   `json:"role"`
}

// AuthService handles authentication operations.
type AuthService interface {
	SignIn(ctx context.Context, identifier, secret string, portal Portal) (*SignInResult, error)
	SignOut(ctx context.Context, access *auth.Claims, refreshToken string) error
	ForceSignOut(ctx context.Context, principalID string) error
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
	Reauthenticate(ctx context.Context, principalID, secret string) error
	ChangeSecret(ctx context.Context, principalID, newSecret string) error
	CreateCredential(ctx context.Context, principalID, email, secret string) error
	DeleteCredential(ctx context.Context, principalID string) error
}

type authService struct {
	users      repository.UserRepository
	creds      repository.CredentialRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	revoker    auth.CredentialRevoker
	changes    ChangePublisher
	audit      AuditRecorder
	log        *zap.Logger
	now        func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	creds repository.CredentialRepository,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	revoker auth.CredentialRevoker,
	changes ChangePublisher,
	audit AuditRecorder,
	log *zap.Logger,
) AuthService {
	if revoker == nil {
		revoker = auth.NoopRevoker{}
	}
	return &authService{
		users:      users,
		creds:      creds,
		jwtService: jwtService,
		tokenStore: tokenStore,
		revoker:    revoker,
		changes:    changes,
		audit:      audit,
		log:        log,
		now:        time.Now,
	}
}

// SignIn authenticates by email or username and returns access and refresh tokens.
func (s *authService) SignIn(ctx context.Context, identifier, secret string, portal Portal) (*SignInResult, error) {
	email, err := s.resolveEmail(ctx, identifier)
	if err != nil {
		return nil, err
	}

	cred, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(secret)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.users.FindByID(ctx, cred.PrincipalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrProfileMissing
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	if !user.Active() {
		return nil, apperrors.ErrAccountInactive
	}

	role, _, err := rbac.ParseRole(user.Role)
	if err != nil {
		s.log.Warn("unknown role on profile, treating as client user", zap.String("principal", user.ID), zap.String("role", user.Role))
		role = rbac.ClientUser
	}
	if !portalAdmits(portal, role) {
		return nil, apperrors.ErrPortalMismatch
	}

	tokens, err := s.issue(ctx, user, role)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, user.ID, model.AuditActionLogin, fmt.Sprintf("User %s logged in", user.Email))
	s.changes.Publish(auth.PrincipalChange{Kind: auth.SignedIn, PrincipalID: user.ID})

	return &SignInResult{Tokens: *tokens, User: user, Role: role}, nil
}

func portalAdmits(portal Portal, role rbac.Role) bool {
	switch portal {
	case PortalStudent:
		return role == rbac.ClientUser
	case PortalAdmin:
		return role.IsAdministrator()
	default:
		return false
	}
}

// resolveEmail maps a username to its email; identifiers containing @ are emails already.
func (s *authService) resolveEmail(ctx context.Context, identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", apperrors.ErrInvalidCredentials
	}
	if strings.Contains(identifier, "@") {
		return strings.ToLower(identifier), nil
	}
	user, err := s.users.FindByUsername(ctx, identifier)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.ErrInvalidCredentials
		}
		return "", fmt.Errorf("find username: %w", err)
	}
	return user.Email, nil
}

func (s *authService) issue(ctx context.Context, user *model.User, role rbac.Role) (*Tokens, error) {
	_, access, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, role.String())
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refreshID, refresh, err := s.jwtService.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.tokenStore.StoreRefreshToken(ctx, refreshID, user.ID, user.Email, s.jwtService.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwtService.AccessTTL().Seconds()),
	}, nil
}

// SignOut blacklists the access token for the rest of its life and drops the refresh token.
func (s *authService) SignOut(ctx context.Context, access *auth.Claims, refreshToken string) error {
	if access == nil {
		return apperrors.ErrInvalidCredentials
	}
	if access.ExpiresAt != nil {
		if ttl := access.ExpiresAt.Time.Sub(s.now()); ttl > 0 {
			if err := s.tokenStore.BlacklistAccessToken(ctx, access.ID, ttl); err != nil {
				return fmt.Errorf("blacklist access token: %w", err)
			}
		}
	}

	if refreshToken != "" {
		claims, err := s.jwtService.ValidateToken(refreshToken)
		if err != nil || claims.PrincipalID != access.PrincipalID {
			return apperrors.ErrInvalidRefreshToken
		}
		if err := s.tokenStore.DeleteRefreshToken(ctx, claims.ID); err != nil {
			return fmt.Errorf("delete refresh token: %w", err)
		}
	}

	s.audit.Record(ctx, access.PrincipalID, model.AuditActionLogout, fmt.Sprintf("User %s logged out", access.Email))
	s.changes.Publish(auth.PrincipalChange{Kind: auth.SignedOut, PrincipalID: access.PrincipalID})
	return nil
}

// ForceSignOut rejects every token issued to principalID so far.
func (s *authService) ForceSignOut(ctx context.Context, principalID string) error {
	if err := s.tokenStore.RevokeIssuedBefore(ctx, principalID, s.now(), s.jwtService.RefreshTTL()); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	s.changes.Publish(auth.PrincipalChange{Kind: auth.SignedOut, PrincipalID: principalID})
	return nil
}

// Refresh validates a refresh token and returns a new access token.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	storedID, storedEmail, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if err != nil || storedID != claims.PrincipalID || storedEmail != claims.Email {
		return nil, apperrors.ErrInvalidRefreshToken
	}
	if revokedAt, err := s.tokenStore.RevokedBefore(ctx, claims.PrincipalID); err == nil && claims.RevokedBy(revokedAt) {
		_ = s.tokenStore.DeleteRefreshToken(ctx, claims.ID)
		return nil, apperrors.ErrInvalidRefreshToken
	}

	user, err := s.users.FindByID(ctx, claims.PrincipalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	role, _, _ := rbac.ParseRole(user.Role)

	_, access, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, role.String())
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	s.changes.Publish(auth.PrincipalChange{Kind: auth.Refreshed, PrincipalID: user.ID})
	return &Tokens{AccessToken: access, ExpiresIn: int64(s.jwtService.AccessTTL().Seconds())}, nil
}

// Reauthenticate confirms the principal still knows its current secret.
func (s *authService) Reauthenticate(ctx context.Context, principalID, secret string) error {
	cred, err := s.creds.FindByPrincipalID(ctx, principalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrInvalidCredentials
		}
		return fmt.Errorf("find credential: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(secret)); err != nil {
		return apperrors.ErrInvalidCredentials
	}
	return nil
}

// ChangeSecret replaces the secret after checking it against the password policy.
func (s *authService) ChangeSecret(ctx context.Context, principalID, newSecret string) error {
	hash, err := hashSecret(newSecret)
	if err != nil {
		return err
	}
	if err := s.creds.UpdateHash(ctx, principalID, hash); err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	return nil
}

// CreateCredential stores a new sign-in secret for a provisioned principal.
func (s *authService) CreateCredential(ctx context.Context, principalID, email, secret string) error {
	hash, err := hashSecret(secret)
	if err != nil {
		return err
	}
	if existing, err := s.creds.FindByEmail(ctx, email); err == nil && existing != nil {
		return apperrors.ErrUserAlreadyExists
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("check credential existence: %w", err)
	}
	if err := s.creds.Create(ctx, &model.Credential{PrincipalID: principalID, Email: email, PasswordHash: hash}); err != nil {
		return fmt.Errorf("create credential: %w", err)
	}
	return nil
}

// DeleteCredential removes the local secret, revokes any external identity and
// ends every live session of the principal.
func (s *authService) DeleteCredential(ctx context.Context, principalID string) error {
	if err := s.creds.Delete(ctx, principalID); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if err := s.revoker.Revoke(ctx, principalID); err != nil {
		s.log.Error("revoke external credential", zap.String("principal", principalID), zap.Error(err))
	}
	return s.ForceSignOut(ctx, principalID)
}

func hashSecret(secret string) (string, error) {
	if res := password.Evaluate(secret); !res.Valid {
		return "", fmt.Errorf("%w: %s", apperrors.ErrWeakPassword, res.FirstError())
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}
