// Package session keeps the per-tab session record published after a successful
// page verification.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"educonnect/internal/cache"
	"educonnect/internal/rbac"
)

// Record is the snapshot of the verified principal that pages read instead of
// re-fetching the profile.
type Record struct {
	PrincipalID string    `json:"uid"`
	Email       string    `json:"email"`
	Role        rbac.Role `json:"role"`
	DisplayName string    `json:"name"`
	StudentID   string    `json:"studentId,omitempty"`
	Username    string    `json:"username,omitempty"`
}

// Store is tab-scoped session storage.
type Store interface {
	Put(ctx context.Context, tabID string, rec Record) error
	// Get returns nil when the tab has no session.
	Get(ctx context.Context, tabID string) (*Record, error)
	Clear(ctx context.Context, tabID string) error
}

const keyPrefix = "tab:"

// KVStore keeps records in a cache.Store under tab:<id>:user.
type KVStore struct {
	kv  cache.Store
	ttl time.Duration
}

var _ Store = (*KVStore)(nil)

// NewKVStore creates a session store. ttl bounds how long an idle tab keeps its record.
func NewKVStore(kv cache.Store, ttl time.Duration) *KVStore {
	return &KVStore{kv: kv, ttl: ttl}
}

func key(tabID string) string {
	return keyPrefix + tabID + ":user"
}

func (s *KVStore) Put(ctx context.Context, tabID string, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.kv.Set(ctx, key(tabID), payload, s.ttl)
}

func (s *KVStore) Get(ctx context.Context, tabID string) (*Record, error) {
	data, err := s.kv.Get(ctx, key(tabID))
	if err != nil || data == nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &rec, nil
}

func (s *KVStore) Clear(ctx context.Context, tabID string) error {
	return s.kv.Delete(ctx, key(tabID))
}

// DisplayName picks the friendliest non-empty name for a principal: full name,
// then username, then email, then a role-based placeholder.
func DisplayName(first, last, username, email string, role rbac.Role) string {
	if full := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last)); full != "" {
		return full
	}
	if username = strings.TrimSpace(username); username != "" {
		return username
	}
	if email = strings.TrimSpace(email); email != "" {
		return email
	}
	if role == rbac.ClientUser {
		return "Student"
	}
	return "User"
}
