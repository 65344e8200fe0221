package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criteo/cdb-adapter/storage"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New(filepath.Join(t.TempDir(), "entries.yaml"))

	_, err := store.Get(ctx, "criteo_fast_bid")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Set(ctx, "criteo_fast_bid", "// Hash: abc\nbody"))

	value, err := store.Get(ctx, "criteo_fast_bid")
	require.NoError(t, err)
	assert.Equal(t, "// Hash: abc\nbody", value)

	require.NoError(t, store.Remove(ctx, "criteo_fast_bid"))
	_, err = store.Get(ctx, "criteo_fast_bid")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFileStoreRemoveMissingIsNoop(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "entries.yaml"))
	assert.NoError(t, store.Remove(context.Background(), "criteo_fast_bid"))
}

func TestFileStorePicksUpExternalWrites(t *testing.T) {
	ctx := context.Background()
	filename := filepath.Join(t.TempDir(), "entries.yaml")
	store := New(filename)

	// Entries written out-of-band must be visible without a restart.
	require.NoError(t, os.WriteFile(filename, []byte("criteo_fast_bid: prefetched\n"), 0644))

	value, err := store.Get(ctx, "criteo_fast_bid")
	require.NoError(t, err)
	assert.Equal(t, "prefetched", value)
}
