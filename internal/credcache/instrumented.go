package credcache

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	metricsOnce     sync.Once
	storeOperations metric.Int64Counter
	storeDuration   metric.Float64Histogram
)

func initMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter("github.com/entrabridge/entra-bridge/internal/credcache")

		var err error
		storeOperations, err = meter.Int64Counter(
			"credcache.operations",
			metric.WithDescription("Total credential store operations"),
		)
		if err != nil {
			otel.Handle(err)
		}

		storeDuration, err = meter.Float64Histogram(
			"credcache.operation.duration",
			metric.WithDescription("Credential store operation duration"),
			metric.WithUnit("s"),
		)
		if err != nil {
			otel.Handle(err)
		}
	})
}

// Instrumented wraps a Store with metrics instrumentation. The cacheName
// attribute distinguishes the application and delegated caches when both are
// active in one process.
type Instrumented[T any] struct {
	wrapped   Store[T]
	cacheName string
}

// NewInstrumented creates an instrumented store wrapper.
func NewInstrumented[T any](store Store[T], cacheName string) *Instrumented[T] {
	initMetrics()
	return &Instrumented[T]{
		wrapped:   store,
		cacheName: cacheName,
	}
}

// Get retrieves a value from the store.
func (i *Instrumented[T]) Get(ctx context.Context, key string) (T, bool, error) {
	start := time.Now()

	value, found, err := i.wrapped.Get(ctx, key)

	duration := time.Since(start)
	i.recordDuration(ctx, "get", duration)

	status := "miss"
	if err != nil {
		status = "error"
	} else if found {
		status = "hit"
	}
	i.recordOperation(ctx, "get", status)
	i.setSpanAttributes(ctx, "get", status, duration)

	return value, found, err
}

// Set stores a value in the store.
func (i *Instrumented[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	start := time.Now()

	err := i.wrapped.Set(ctx, key, value, ttl)

	duration := time.Since(start)
	i.recordDuration(ctx, "set", duration)

	status := "success"
	if err != nil {
		status = "error"
	}
	i.recordOperation(ctx, "set", status)
	i.setSpanAttributes(ctx, "set", status, duration)

	return err
}

// Delete removes an entry from the store.
func (i *Instrumented[T]) Delete(ctx context.Context, key string) error {
	start := time.Now()

	err := i.wrapped.Delete(ctx, key)

	duration := time.Since(start)
	i.recordDuration(ctx, "delete", duration)

	status := "success"
	if err != nil {
		status = "error"
	}
	i.recordOperation(ctx, "delete", status)
	i.setSpanAttributes(ctx, "delete", status, duration)

	return err
}

// Clear removes all entries from the store.
func (i *Instrumented[T]) Clear(ctx context.Context) error {
	start := time.Now()

	err := i.wrapped.Clear(ctx)

	duration := time.Since(start)
	i.recordDuration(ctx, "clear", duration)

	status := "success"
	if err != nil {
		status = "error"
	}
	i.recordOperation(ctx, "clear", status)
	i.setSpanAttributes(ctx, "clear", status, duration)

	return err
}

func (i *Instrumented[T]) recordOperation(ctx context.Context, operation, status string) {
	if storeOperations == nil {
		return
	}
	storeOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("credcache.name", i.cacheName),
			attribute.String("credcache.operation", operation),
			attribute.String("credcache.status", status),
		),
	)
}

func (i *Instrumented[T]) recordDuration(ctx context.Context, operation string, duration time.Duration) {
	if storeDuration == nil {
		return
	}
	storeDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("credcache.name", i.cacheName),
			attribute.String("credcache.operation", operation),
		),
	)
}

func (i *Instrumented[T]) setSpanAttributes(ctx context.Context, operation, status string, duration time.Duration) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("credcache.name", i.cacheName),
		attribute.String("credcache."+operation+".status", status),
		attribute.Float64("credcache."+operation+".duration", duration.Seconds()),
	)
}
