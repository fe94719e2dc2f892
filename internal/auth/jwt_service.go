package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTokenExpiry is used when no access TTL is configured.
	DefaultAccessTokenExpiry = 15 * time.Minute
	// DefaultRefreshTokenExpiry is used when no refresh TTL is configured.
	DefaultRefreshTokenExpiry = 7 * 24 * time.Hour
)

// iat and nbf carry milliseconds so a revocation issued in the same second as
// a token still covers it.
func init() {
	jwt.TimePrecision = time.Millisecond
}

// Claims represents JWT claims. Role is informational only; authorization
// always re-reads the profile.
type Claims struct {
	PrincipalID string `json:"uid"`
	Email       string `json:"email"`
	Role        string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// RevokedBy reports whether a revocation at revokedAt covers this token. A
// token issued at the revocation instant is revoked.
func (c *Claims) RevokedBy(revokedAt time.Time) bool {
	if revokedAt.IsZero() {
		return false
	}
	return c.IssuedAt == nil || !c.IssuedAt.Time.After(revokedAt)
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTService creates a new JWT service with the given secret and lifetimes.
func NewJWTService(secret string, accessTTL, refreshTTL time.Duration) *JWTService {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenExpiry
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenExpiry
	}
	return &JWTService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Secret returns the signing key for the echo-jwt middleware.
func (s *JWTService) Secret() []byte { return s.secret }

// AccessTTL is the lifetime of access tokens.
func (s *JWTService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL is the lifetime of refresh tokens.
func (s *JWTService) RefreshTTL() time.Duration { return s.refreshTTL }

// GenerateAccessToken generates a new access token. The token ID is returned
// so the token can be blacklisted on sign-out.
func (s *JWTService) GenerateAccessToken(principalID, email, role string) (tokenID string, token string, err error) {
	return s.generate(principalID, email, role, s.accessTTL)
}

// GenerateRefreshToken generates a new refresh token.
// The refresh token ID is returned separately for storage in Redis.
func (s *JWTService) GenerateRefreshToken(principalID, email string) (tokenID string, token string, err error) {
	return s.generate(principalID, email, "", s.refreshTTL)
}

func (s *JWTService) generate(principalID, email, role string, ttl time.Duration) (string, string, error) {
	now := s.now()
	tokenID := generateTokenID()
	claims := &Claims{
		PrincipalID: principalID,
		Email:       email,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   principalID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return tokenID, token, err
}

// ValidateToken validates a JWT token and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ID == "" {
		return nil, errors.New("token ID not found")
	}

	return claims, nil
}

// NewClaims is the claims factory for the echo-jwt middleware.
func NewClaims() jwt.Claims {
	return new(Claims)
}

// generateTokenID generates a unique token ID.
func generateTokenID() string {
	return uuid.New().String()
}
