package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDedupStore(t *testing.T) {
	store := NewMemoryDedupStore()
	ctx := context.Background()

	claimed, err := store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.False(t, claimed)

	claimed, err = store.MarkProcessed(ctx, "evt_2", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestMemoryDedupStore_Forget(t *testing.T) {
	store := NewMemoryDedupStore()
	ctx := context.Background()

	claimed, err := store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, store.Forget(ctx, "evt_1"))

	claimed, err = store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestMemoryDedupStore_Expiry(t *testing.T) {
	store := NewMemoryDedupStore()
	ctx := context.Background()

	claimed, err := store.MarkProcessed(ctx, "evt_1", time.Millisecond)
	require.NoError(t, err)
	require.True(t, claimed)

	time.Sleep(5 * time.Millisecond)

	claimed, err = store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed, "expired claims must be reusable")
}
