// Package credcache caches credentials minted for outbound tool calls. Two
// cooperating caches are provided: AppCache holds application credentials
// keyed by a static (tenant, client) pair under a fixed TTL, and OBOCache
// holds delegated (on-behalf-of) credentials keyed by the identity parsed
// from a caller's assertion, aged by the assertion's real expiry.
//
// Both caches share the same machinery: an expiring key-value store for
// completed outcomes, and a single-flight coordinator that ensures one
// credential-issuance call per key no matter how many callers race.
package credcache

import (
	"context"
	"time"

	"github.com/entrabridge/entra-bridge/internal/token"
)

// CredentialFactory mints credentials. Both operations may be slow and may
// fail; the caches never retry or time them out on their own.
type CredentialFactory[C any] interface {
	// CreateAppCredential mints a credential for the application's own
	// identity in the given tenant.
	CreateAppCredential(ctx context.Context, tenantID, clientID string) (C, error)

	// CreateOBOCredential exchanges a caller-supplied assertion for a
	// credential acting on behalf of the asserted user.
	CreateOBOCredential(ctx context.Context, assertion string) (C, error)
}

// Store is an expiring key-value store: entries are written with a per-entry
// TTL, read as absent once that TTL elapses, and may be removed or cleared
// explicitly. Implementations must be safe for concurrent use, and reads of
// distinct keys must not serialize against each other.
type Store[T any] interface {
	// Get retrieves a value. Returns the value, whether it was found (an
	// expired entry reads as not found), and any error.
	Get(ctx context.Context, key string) (T, bool, error)

	// Set stores a value with the given TTL, overwriting any prior entry.
	Set(ctx context.Context, key string, value T, ttl time.Duration) error

	// Delete removes an entry unconditionally.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries.
	Clear(ctx context.Context) error
}

// result is the completed outcome of a single credential creation. Exactly
// one of credential or err is meaningful: err != nil marks a negative entry
// whose hit re-raises the error instead of returning a credential. The info
// field is populated by the OBO cache only, and carries the parse-time
// identity needed to revalidate a hit against the token's real expiry.
type result[C any] struct {
	credential C
	info       token.Info
	err        error
}
