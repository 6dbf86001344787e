package credcache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/entrabridge/entra-bridge/internal/token"
)

// OBOCache caches on-behalf-of credentials keyed by the identity carried
// inside a caller's assertion. Entries are aged by the assertion's own
// expiry rather than a fixed window: the store TTL is derived from the
// token's remaining life, and a hit is additionally revalidated against the
// embedded expiry at read time. The second check covers entries whose store
// TTL outlives the token, for instance after clock drift between the issuer
// and this process.
type OBOCache[C any] struct {
	store   Store[result[C]]
	flight  Flight[result[C]]
	factory CredentialFactory[C]
	parser  token.Parser
	buffer  time.Duration
}

// OBOCacheOption configures an OBOCache.
type OBOCacheOption[C any] func(*OBOCache[C])

// WithOBOBuffer overrides the default safety buffer.
func WithOBOBuffer[C any](buffer time.Duration) OBOCacheOption[C] {
	return func(c *OBOCache[C]) {
		c.buffer = buffer
	}
}

// NewOBOCache creates a delegated credential cache. The parser extracts
// identity and expiry from assertions; the factory performs the on-behalf-of
// exchange on a miss.
func NewOBOCache[C any](factory CredentialFactory[C], parser token.Parser, opts ...OBOCacheOption[C]) *OBOCache[C] {
	c := &OBOCache[C]{
		store:   NewInstrumented(NewMemory[result[C]](), "obo"),
		factory: factory,
		parser:  parser,
		buffer:  expiryBuffer,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetCredential returns a credential for the identity asserted by the
// caller, exchanging the assertion through the factory when no live entry
// exists. Assertions carrying the same tenant/client/user identity share a
// cache entry regardless of the assertion bytes. Parse failures propagate
// immediately and are never cached.
func (c *OBOCache[C]) GetCredential(ctx context.Context, assertion string) (C, error) {
	var zero C

	info, err := c.parser.ParseToken(ctx, assertion)
	if err != nil {
		return zero, fmt.Errorf("could not parse assertion: %w", err)
	}

	key := oboKey(info)

	if res, ok := c.lookup(ctx, key); ok {
		if res.err != nil {
			return zero, res.err
		}

		if c.live(res.info) {
			log.Debug().Str("key", key).Time("expiry", res.info.Expiry).
				Msg("hit: cached delegated credential")
			return res.credential, nil
		}

		// The embedded token expiry is tighter than the entry's TTL: the
		// hit cannot be trusted. Drop the entry and mint a fresh credential.
		log.Info().Str("key", key).Time("expiry", res.info.Expiry).
			Msg("invalid: cached delegated credential past token expiry")

		if derr := c.store.Delete(ctx, key); derr != nil {
			log.Warn().Err(derr).Str("key", key).Msg("failed to remove stale entry")
		}
	}

	res, err := c.flight.Do(ctx, key, func() (result[C], error) {
		return c.create(ctx, key, assertion, info)
	})
	if err != nil {
		return zero, err
	}

	return res.credential, nil
}

// create runs on the single in-flight goroutine for key, re-checking the
// store for an entry completed by a racing flight before exchanging the
// assertion.
func (c *OBOCache[C]) create(ctx context.Context, key, assertion string, info token.Info) (result[C], error) {
	ctx = context.WithoutCancel(ctx)

	if res, ok := c.lookup(ctx, key); ok && (res.err != nil || c.live(res.info)) {
		return res, res.err
	}

	credential, err := c.factory.CreateOBOCredential(ctx, assertion)
	entry := result[C]{credential: credential, info: info, err: err}

	// The entry may live only as long as the token it was derived from,
	// less the safety buffer. A token already at or past that point is not
	// worth caching; the freshly created credential is still returned.
	remaining := time.Until(info.Expiry) - c.buffer
	if remaining > 0 {
		if serr := c.store.Set(ctx, key, entry, remaining); serr != nil {
			log.Warn().Err(serr).Str("key", key).
				Msg("failed to cache delegated credential outcome")
		}
	} else {
		log.Debug().Str("key", key).Time("expiry", info.Expiry).
			Msg("skipping cache: token too close to expiry")
	}

	if err != nil {
		log.Info().Err(err).Str("key", key).
			Msg("delegated credential creation failed; failure cached")
		return entry, err
	}

	return entry, nil
}

// Clear removes all entries held by this cache instance.
func (c *OBOCache[C]) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

func (c *OBOCache[C]) lookup(ctx context.Context, key string) (result[C], bool) {
	res, ok, err := c.store.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("credential store read failed")
		return result[C]{}, false
	}

	return res, ok
}

// live reports whether the token behind a cached entry can still be trusted,
// leaving the safety buffer before its real expiry.
func (c *OBOCache[C]) live(info token.Info) bool {
	return time.Until(info.Expiry) > c.buffer
}

// oboKey derives the cache key for a delegated identity from the parsed
// token, never from the raw assertion: distinct assertions for the same
// identity must land on the same entry.
func oboKey(info token.Info) string {
	return fmt.Sprintf("obo://%s/%s/%s", info.TenantID, info.ClientID, info.UserID)
}
