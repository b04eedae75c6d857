package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryStoreSetGet verifies basic round trips
func TestMemoryStoreSetGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "plan:beijing", `{"city":"Beijing"}`, 0))

	val, err := store.Get(ctx, "plan:beijing")
	require.NoError(t, err)
	assert.Equal(t, `{"city":"Beijing"}`, val)

	exists, err := store.Exists(ctx, "plan:beijing")
	require.NoError(t, err)
	assert.True(t, exists)
}

// TestMemoryStoreMissingKey verifies misses return empty, not error
func TestMemoryStoreMissingKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	val, err := store.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Equal(t, "", val)

	exists, err := store.Exists(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, exists)
}

// TestMemoryStoreTTL verifies expiry behavior
func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "short", "v", 10*time.Millisecond))

	val, err := store.Get(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	time.Sleep(20 * time.Millisecond)

	val, err = store.Get(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, "", val)

	exists, err := store.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, exists)
}

// TestMemoryStoreDelete verifies deletion
func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "k", "v", 0))
	require.NoError(t, store.Delete(ctx, "k"))

	exists, err := store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

// TestMemoryStoreCleanup verifies expired entries are removed
func TestMemoryStoreCleanup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "stale", "v", time.Millisecond))
	require.NoError(t, store.Set(ctx, "fresh", "v", time.Hour))

	time.Sleep(5 * time.Millisecond)
	store.Cleanup()

	store.mu.RLock()
	_, staleExists := store.store["stale"]
	_, freshExists := store.store["fresh"]
	store.mu.RUnlock()

	assert.False(t, staleExists)
	assert.True(t, freshExists)
}

// TestMemoryStoreConcurrentAccess verifies the store is race-safe
func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				_ = store.Set(ctx, "shared", "v", time.Minute)
				_, _ = store.Get(ctx, "shared")
				_, _ = store.Exists(ctx, "shared")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
