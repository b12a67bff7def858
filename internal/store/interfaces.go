package store

import "context"

// AuthTokenKey is the well-known key the session token is persisted under.
const AuthTokenKey = "auth_token"

// CredentialStore persists small string credentials across restarts. The
// request layer mirrors the in-memory session token here so startup can
// attempt a silent re-authentication.
type CredentialStore interface {
	// Get returns the stored value for key, or "" when absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any prior value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the value stored under key.
	Delete(ctx context.Context, key string) error

	// Close releases store resources.
	Close() error
}
