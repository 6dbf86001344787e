package credcache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// appCredentialTTL is the nominal validity window assumed for an
	// application credential: 12 hours.
	appCredentialTTL = 43_200 * time.Second

	// expiryBuffer is the safety margin subtracted from a validity window
	// before caching, so an entry is evicted before the credential it holds
	// gets close to real-world expiry.
	expiryBuffer = 300 * time.Second
)

// AppCache caches application credentials keyed by (tenant, client) under a
// fixed TTL. Factory failures are cached as negative entries under the same
// TTL policy, so a burst of requests against a failing issuer does not retry
// it on every call.
type AppCache[C any] struct {
	store   Store[result[C]]
	flight  Flight[result[C]]
	factory CredentialFactory[C]
	ttl     time.Duration
	buffer  time.Duration
}

// AppCacheOption configures an AppCache.
type AppCacheOption[C any] func(*AppCache[C])

// WithAppTTL overrides the default validity window and safety buffer.
func WithAppTTL[C any](ttl, buffer time.Duration) AppCacheOption[C] {
	return func(c *AppCache[C]) {
		c.ttl = ttl
		c.buffer = buffer
	}
}

// NewAppCache creates an application credential cache using the given
// factory for misses.
func NewAppCache[C any](factory CredentialFactory[C], opts ...AppCacheOption[C]) *AppCache[C] {
	c := &AppCache[C]{
		store:   NewInstrumented(NewMemory[result[C]](), "app"),
		factory: factory,
		ttl:     appCredentialTTL,
		buffer:  expiryBuffer,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetCredential returns the cached credential for the (tenant, client) pair,
// minting one through the factory on a miss. Concurrent callers for the same
// pair share a single factory call. A cached factory error is re-raised
// without contacting the factory again until its entry expires or the pair
// is invalidated.
func (c *AppCache[C]) GetCredential(ctx context.Context, tenantID, clientID string) (C, error) {
	var zero C

	key := appKey(tenantID, clientID)

	if res, ok := c.lookup(ctx, key); ok {
		if res.err != nil {
			return zero, res.err
		}

		log.Debug().Str("key", key).Msg("hit: cached application credential")
		return res.credential, nil
	}

	res, err := c.flight.Do(ctx, key, func() (result[C], error) {
		return c.create(ctx, key, tenantID, clientID)
	})
	if err != nil {
		return zero, err
	}

	return res.credential, nil
}

// create runs on the single in-flight goroutine for key. It re-checks the
// store first: a racing flight may have completed between this caller's miss
// and its turn in the coordinator.
func (c *AppCache[C]) create(ctx context.Context, key, tenantID, clientID string) (result[C], error) {
	// The creation must complete for the benefit of waiters whose contexts
	// remain live, even if the triggering caller has gone away.
	ctx = context.WithoutCancel(ctx)

	if res, ok := c.lookup(ctx, key); ok {
		return res, res.err
	}

	credential, err := c.factory.CreateAppCredential(ctx, tenantID, clientID)
	entry := result[C]{credential: credential, err: err}

	if serr := c.store.Set(ctx, key, entry, c.ttl-c.buffer); serr != nil {
		log.Warn().Err(serr).Str("key", key).
			Msg("failed to cache application credential outcome")
	}

	if err != nil {
		log.Info().Err(err).Str("key", key).
			Msg("application credential creation failed; failure cached")
		return entry, err
	}

	return entry, nil
}

// Invalidate removes the entry for the (tenant, client) pair. The next
// GetCredential call for the pair mints a fresh credential.
func (c *AppCache[C]) Invalidate(ctx context.Context, tenantID, clientID string) error {
	return c.store.Delete(ctx, appKey(tenantID, clientID))
}

// Clear removes all entries held by this cache instance.
func (c *AppCache[C]) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

func (c *AppCache[C]) lookup(ctx context.Context, key string) (result[C], bool) {
	res, ok, err := c.store.Get(ctx, key)
	if err != nil {
		// a failing store read degrades to a miss
		log.Warn().Err(err).Str("key", key).Msg("credential store read failed")
		return result[C]{}, false
	}

	return res, ok
}

// appKey derives the cache key for an application identity. The derivation
// is order-sensitive: swapping tenant and client yields a different key.
func appKey(tenantID, clientID string) string {
	return fmt.Sprintf("app://%s/%s", tenantID, clientID)
}
