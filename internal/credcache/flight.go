package credcache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Flight deduplicates concurrent executions per key: while a call for a key
// is in progress, further calls for the same key wait for and share its
// outcome instead of executing again. Completion (success or failure) clears
// the key's bookkeeping, so the next call starts fresh. Calls for different
// keys are fully independent.
//
// Flight holds no produced data itself; results live in the store.
type Flight[T any] struct {
	group singleflight.Group
}

// Do executes fn under single-flight for key, returning the shared outcome.
//
// If ctx is cancelled while waiting, the caller unblocks with ctx.Err() but
// the in-flight execution continues to completion for any other waiters.
// The zero value of Flight is ready to use.
func (f *Flight[T]) Do(ctx context.Context, key string, fn func() (T, error)) (T, error) {
	ch := f.group.DoChan(key, func() (any, error) {
		return fn()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil

	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
