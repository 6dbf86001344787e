package credcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlightDo_ReturnsProducerValue(t *testing.T) {
	var flight Flight[string]

	value, err := flight.Do(context.Background(), "key", func() (string, error) {
		return "produced", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "produced", value)
}

func TestFlightDo_ReturnsProducerError(t *testing.T) {
	var flight Flight[string]
	expected := errors.New("production failed")

	_, err := flight.Do(context.Background(), "key", func() (string, error) {
		return "", expected
	})

	assert.ErrorIs(t, err, expected)
}

func TestFlightDo_ConcurrentCallersShareOneExecution(t *testing.T) {
	var flight Flight[string]

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})

	producer := func() (string, error) {
		calls.Add(1)
		close(entered)
		<-release
		return "shared", nil
	}

	results := make(chan string, 5)
	errs := make(chan error, 5)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := flight.Do(context.Background(), "key", producer)
		results <- v
		errs <- err
	}()

	// make sure the first execution is in flight before the rest join
	<-entered

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := flight.Do(context.Background(), "key", producer)
			results <- v
			errs <- err
		}()
	}

	close(release)
	wg.Wait()
	close(results)
	close(errs)

	assert.Equal(t, int32(1), calls.Load())
	for v := range results {
		assert.Equal(t, "shared", v)
	}
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestFlightDo_DistinctKeysExecuteIndependently(t *testing.T) {
	var flight Flight[string]

	// the first key's execution blocks until the second key's completes:
	// this deadlocks unless keys proceed in parallel
	secondDone := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		v, err := flight.Do(context.Background(), "key-1", func() (string, error) {
			<-secondDone
			return "one", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "one", v)
	}()

	go func() {
		defer wg.Done()
		v, err := flight.Do(context.Background(), "key-2", func() (string, error) {
			defer close(secondDone)
			return "two", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "two", v)
	}()

	wg.Wait()
}

func TestFlightDo_CompletionClearsKey(t *testing.T) {
	var flight Flight[string]
	var calls atomic.Int32

	producer := func() (string, error) {
		calls.Add(1)
		return "fresh", nil
	}

	_, err := flight.Do(context.Background(), "key", producer)
	require.NoError(t, err)

	_, err = flight.Do(context.Background(), "key", producer)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
}

func TestFlightDo_CancelledCallerAbandonsWaitOnly(t *testing.T) {
	var flight Flight[string]

	entered := make(chan struct{})
	release := make(chan struct{})

	cancelCtx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(2)

	// first caller starts the execution then gets cancelled
	var cancelledErr error
	go func() {
		defer wg.Done()
		_, cancelledErr = flight.Do(cancelCtx, "key", func() (string, error) {
			close(entered)
			<-release
			return "survived", nil
		})
	}()

	<-entered

	// second caller waits on the same in-flight execution
	var survivorValue string
	var survivorErr error
	go func() {
		defer wg.Done()
		survivorValue, survivorErr = flight.Do(context.Background(), "key", func() (string, error) {
			t.Error("producer must not run a second time")
			return "", nil
		})
	}()

	// allow the second caller to join the in-flight execution
	time.Sleep(50 * time.Millisecond)

	cancel()
	close(release)
	wg.Wait()

	assert.ErrorIs(t, cancelledErr, context.Canceled)
	assert.NoError(t, survivorErr)
	assert.Equal(t, "survived", survivorValue)
}
