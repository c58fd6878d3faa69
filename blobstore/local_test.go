package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	ctx := context.Background()

	data := []byte("hello world, this is a test segment blob")
	require.NoError(t, store.Put(ctx, "segments/a.vxs", data))

	_, err := os.Stat(filepath.Join(dir, "segments", "a.vxs"))
	require.NoError(t, err)

	blob, err := store.Open(ctx, "segments/a.vxs")
	require.NoError(t, err)
	defer blob.Close()

	assert.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))

	_, ok := blob.(Mappable)
	assert.True(t, ok, "local blobs are memory mapped")

	all, err := ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, data, all)
}

func TestLocalStore_PutOverwrites(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "x", []byte("first version")))
	require.NoError(t, store.Put(ctx, "x", []byte("second")))

	got, err := Get(ctx, store, "x")
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, names, "no temp files left behind")
}

func TestLocalStore_MissingAndDelete(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	_, err := store.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "d", []byte{1, 2, 3}))
	require.NoError(t, store.Delete(ctx, "d"))
	require.NoError(t, store.Delete(ctx, "d"))

	_, err = store.Open(ctx, "d")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_List(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"b/2", "a/1", "b/1", "c"} {
		require.NoError(t, store.Put(ctx, name, []byte(name)))
	}

	names, err := store.List(ctx, "b/")
	require.NoError(t, err)
	assert.Equal(t, []string{"b/1", "b/2"}, names)

	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "b/1", "b/2", "c"}, names)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "not-created"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalStore_InvalidNames(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"", "/abs", "../escape", "a/../../b"} {
		err := store.Put(ctx, name, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestLocalStore_EmptyBlob(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "empty", nil))
	got, err := Get(ctx, store, "empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}
