package auth

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// CredentialRevoker removes a principal from an external identity provider.
type CredentialRevoker interface {
	Revoke(ctx context.Context, principalID string) error
}

// NoopRevoker is used when no external identity provider is configured.
type NoopRevoker struct{}

func (NoopRevoker) Revoke(context.Context, string) error { return nil }

// firebaseUsers is the subset of the Firebase auth client the revoker needs.
type firebaseUsers interface {
	RevokeRefreshTokens(ctx context.Context, uid string) error
	DeleteUser(ctx context.Context, uid string) error
}

// FirebaseRevoker revokes refresh tokens and deletes the Firebase user.
type FirebaseRevoker struct {
	users firebaseUsers
}

// NewFirebaseRevoker builds a revoker from a service-account file path or inline JSON.
func NewFirebaseRevoker(ctx context.Context, credentials string) (*FirebaseRevoker, error) {
	var opts []option.ClientOption
	if strings.HasPrefix(strings.TrimSpace(credentials), "{") {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentials)))
	} else {
		opts = append(opts, option.WithCredentialsFile(credentials))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &FirebaseRevoker{users: client}, nil
}

// Revoke is idempotent: a user Firebase does not know is already revoked.
func (r *FirebaseRevoker) Revoke(ctx context.Context, principalID string) error {
	if err := r.users.RevokeRefreshTokens(ctx, principalID); err != nil {
		if fbauth.IsUserNotFound(err) {
			return nil
		}
		return fmt.Errorf("revoke firebase tokens: %w", err)
	}
	if err := r.users.DeleteUser(ctx, principalID); err != nil && !fbauth.IsUserNotFound(err) {
		return fmt.Errorf("delete firebase user: %w", err)
	}
	return nil
}
