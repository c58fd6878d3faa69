package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	src := []byte("abcdef")
	require.NoError(t, store.Put(ctx, "seg/1", src))
	src[0] = 'z'

	got, err := Get(ctx, store, "seg/1")
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(got), "Put copies its input")

	blob, err := store.Open(ctx, "seg/1")
	require.NoError(t, err)
	buf := make([]byte, 4)
	n, err := blob.ReadAt(buf, 4)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, store.Put(ctx, "seg/0", []byte("x")))
	require.NoError(t, store.Put(ctx, "other", []byte("y")))
	names, err := store.List(ctx, "seg/")
	require.NoError(t, err)
	assert.Equal(t, []string{"seg/0", "seg/1"}, names)
	assert.Equal(t, 3, store.Len())

	require.NoError(t, store.Delete(ctx, "seg/1"))
	_, err = store.Open(ctx, "seg/1")
	assert.ErrorIs(t, err, ErrNotFound)
}
