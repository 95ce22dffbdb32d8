package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-engine/internal/models"
	"story-engine/internal/repository"
)

func TestMemoryKVStore(t *testing.T) {
	store := repository.NewMemoryKVStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "k1", "v1"))
	require.NoError(t, store.Set(ctx, "k1", "v2"))

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)

	require.NoError(t, store.Remove(ctx, "k1"))
	require.NoError(t, store.Remove(ctx, "k1"))
	_, err = store.Get(ctx, "k1")
	assert.ErrorIs(t, err, models.ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "a", "1"))
	require.NoError(t, store.Set(ctx, "b", "2"))
	require.NoError(t, store.MultiRemove(ctx, []string{"a", "b", "absent"}))

	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, models.ErrKeyNotFound)
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, models.ErrKeyNotFound)
}
