package credcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockStore is a mock implementation of Store for testing.
type mockStore[T any] struct {
	getValue T
	getFound bool
	getError error
	setError error
	delError error
	clrError error

	getCalls int
	setCalls int
	delCalls int
	clrCalls int
}

func (m *mockStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	m.getCalls++
	return m.getValue, m.getFound, m.getError
}

func (m *mockStore[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	m.setCalls++
	return m.setError
}

func (m *mockStore[T]) Delete(ctx context.Context, key string) error {
	m.delCalls++
	return m.delError
}

func (m *mockStore[T]) Clear(ctx context.Context) error {
	m.clrCalls++
	return m.clrError
}

func TestInstrumented_Get_Success(t *testing.T) {
	mock := &mockStore[string]{
		getValue: "test-value",
		getFound: true,
	}

	instrumented := NewInstrumented[string](mock, "test")
	ctx := context.Background()

	value, found, err := instrumented.Get(ctx, "test-key")

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "test-value", value)
	assert.Equal(t, 1, mock.getCalls)
}

func TestInstrumented_Get_Error(t *testing.T) {
	expected := errors.New("backing store unavailable")
	mock := &mockStore[string]{getError: expected}

	instrumented := NewInstrumented[string](mock, "test")

	_, found, err := instrumented.Get(context.Background(), "test-key")

	assert.ErrorIs(t, err, expected)
	assert.False(t, found)
}

func TestInstrumented_Set_PassesThrough(t *testing.T) {
	mock := &mockStore[string]{}
	instrumented := NewInstrumented[string](mock, "test")

	err := instrumented.Set(context.Background(), "test-key", "test-value", time.Minute)

	require.NoError(t, err)
	assert.Equal(t, 1, mock.setCalls)
}

func TestInstrumented_Set_Error(t *testing.T) {
	expected := errors.New("write failed")
	mock := &mockStore[string]{setError: expected}
	instrumented := NewInstrumented[string](mock, "test")

	err := instrumented.Set(context.Background(), "test-key", "test-value", time.Minute)

	assert.ErrorIs(t, err, expected)
}

func TestInstrumented_Delete_PassesThrough(t *testing.T) {
	mock := &mockStore[string]{}
	instrumented := NewInstrumented[string](mock, "test")

	err := instrumented.Delete(context.Background(), "test-key")

	require.NoError(t, err)
	assert.Equal(t, 1, mock.delCalls)
}

func TestInstrumented_Clear_PassesThrough(t *testing.T) {
	mock := &mockStore[string]{}
	instrumented := NewInstrumented[string](mock, "test")

	err := instrumented.Clear(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, mock.clrCalls)
}
