package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"educonnect/internal/cache"
)

const (
	refreshTokenKeyPrefix = "refresh_token:"
	accessTokenKeyPrefix  = "blacklist:access_token:"
	revokedKeyPrefix      = "revoked_before:"
)

// ErrRefreshTokenNotFound is returned when a refresh token is unknown or expired.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// TokenStoreInterface defines the interface for token storage operations.
type TokenStoreInterface interface {
	StoreRefreshToken(ctx context.Context, tokenID, principalID, email string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, tokenID string) (principalID, email string, err error)
	DeleteRefreshToken(ctx context.Context, tokenID string) error
	BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)
	// RevokeIssuedBefore rejects every token of principalID issued before at.
	RevokeIssuedBefore(ctx context.Context, principalID string, at time.Time, ttl time.Duration) error
	// RevokedBefore returns the revocation instant, or the zero time when none is set.
	RevokedBefore(ctx context.Context, principalID string) (time.Time, error)
}

// TokenStore handles storage and retrieval of tokens in Redis.
type TokenStore struct {
	cache cache.Store
}

// Ensure TokenStore implements TokenStoreInterface
var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache cache.Store) *TokenStore {
	return &TokenStore{cache: cache}
}

type refreshTokenData struct {
	PrincipalID string `json:"uid"`
	Email       string `json:"email"`
}

// StoreRefreshToken stores a refresh token in Redis with TTL.
func (s *TokenStore) StoreRefreshToken(ctx context.Context, tokenID, principalID, email string, ttl time.Duration) error {
	payload, err := json.Marshal(refreshTokenData{PrincipalID: principalID, Email: email})
	if err != nil {
		return fmt.Errorf("marshal token data: %w", err)
	}
	return s.cache.Set(ctx, refreshTokenKeyPrefix+tokenID, payload, ttl)
}

// GetRefreshToken retrieves refresh token data from Redis.
func (s *TokenStore) GetRefreshToken(ctx context.Context, tokenID string) (principalID, email string, err error) {
	data, err := s.cache.Get(ctx, refreshTokenKeyPrefix+tokenID)
	if err != nil || data == nil {
		return "", "", ErrRefreshTokenNotFound
	}

	var td refreshTokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", "", fmt.Errorf("unmarshal token data: %w", err)
	}
	if td.PrincipalID == "" {
		return "", "", fmt.Errorf("invalid principal id in token data")
	}
	return td.PrincipalID, td.Email, nil
}

// DeleteRefreshToken removes a refresh token from Redis.
func (s *TokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	return s.cache.Delete(ctx, refreshTokenKeyPrefix+tokenID)
}

// BlacklistAccessToken adds an access token to the blacklist until it expires.
func (s *TokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	return s.cache.Set(ctx, accessTokenKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsAccessTokenBlacklisted checks if an access token is blacklisted.
func (s *TokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	data, err := s.cache.Get(ctx, accessTokenKeyPrefix+tokenID)
	if err != nil {
		return false, nil // Not blacklisted if error (fail safe)
	}
	return data != nil, nil
}

// RevokeIssuedBefore stores the revocation instant in unix milliseconds. ttl should
// cover the longest token lifetime.
func (s *TokenStore) RevokeIssuedBefore(ctx context.Context, principalID string, at time.Time, ttl time.Duration) error {
	return s.cache.Set(ctx, revokedKeyPrefix+principalID, []byte(strconv.FormatInt(at.UnixMilli(), 10)), ttl)
}

func (s *TokenStore) RevokedBefore(ctx context.Context, principalID string) (time.Time, error) {
	data, err := s.cache.Get(ctx, revokedKeyPrefix+principalID)
	if err != nil || data == nil {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse revocation instant: %w", err)
	}
	return time.UnixMilli(ms), nil
}
