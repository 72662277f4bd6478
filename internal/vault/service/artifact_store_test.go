package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/provision/internal/errors"
)

func newTestStore(t *testing.T) ArtifactStore {
	t.Helper()
	store, err := NewBlobArtifactStore(context.Background(), "file://"+t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBlobArtifactStore_WriteReadDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Write(ctx, "token-a", []byte(`{"bundle":true}`)))

	payload, err := store.Read(ctx, "token-a")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"bundle":true}`), payload)

	require.NoError(t, store.Delete(ctx, "token-a"))

	_, err = store.Read(ctx, "token-a")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestBlobArtifactStore_ReadMissingKey(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Read(context.Background(), "never-written")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestBlobArtifactStore_DeleteMissingKeyIsNoop(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Delete(context.Background(), "never-written"))
}

func TestBlobArtifactStore_Keys(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Write(ctx, "token-a", []byte("a")))
	require.NoError(t, store.Write(ctx, "token-b", []byte("b")))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"token-a", "token-b"}, keys)
}
