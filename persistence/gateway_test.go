package persistence_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/hupe1980/vexec/blobstore"
	"github.com/hupe1980/vexec/index"
	"github.com/hupe1980/vexec/index/flat"
	"github.com/hupe1980/vexec/index/ivf"
	_ "github.com/hupe1980/vexec/index/vptree"
	"github.com/hupe1980/vexec/internal/resource"
	"github.com/hupe1980/vexec/persistence"
	"github.com/hupe1980/vexec/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlat(t *testing.T, n, dim int) *flat.Flat {
	t.Helper()
	f := flat.New(dim)
	vecs := testutil.NewRNG(7).FlatVectors(n, dim)
	require.NoError(t, f.Add(n, vecs, testutil.SequentialIDs(n, 100), index.AddConfig{Dim: dim}))
	return f
}

func assertSameSearch(t *testing.T, want, got index.Index, dim int) {
	t.Helper()
	queries := testutil.NewRNG(11).FlatVectors(3, dim)
	k := 5
	wd, wl := make([]float32, 3*k), make([]int64, 3*k)
	gd, gl := make([]float32, 3*k), make([]int64, 3*k)
	cfg := index.SearchConfig{K: k, NProbe: 1 << 20}
	require.NoError(t, want.Search(3, queries, k, wd, wl, cfg))
	require.NoError(t, got.Search(3, queries, k, gd, gl, cfg))
	assert.Equal(t, wl, gl)
	assert.Equal(t, wd, gd)
}

func TestGateway_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, c := range []persistence.Compression{persistence.CompressionNone, persistence.CompressionLZ4, persistence.CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			gw := persistence.NewMemoryGateway(persistence.WithCompression(c))
			src := newFlat(t, 64, 8)

			require.NoError(t, gw.Write(ctx, "seg/a", src))
			got, err := gw.Read(ctx, "seg/a")
			require.NoError(t, err)

			assert.Equal(t, index.FlatIDMap, got.Type())
			assert.Equal(t, 64, got.Count())
			assert.Equal(t, 8, got.Dimension())
			fl, ok := got.AsFlat()
			require.True(t, ok)
			assert.Equal(t, src.RawIDs(), fl.RawIDs())
			assert.Equal(t, src.RawVectors(), fl.RawVectors())
		})
	}
}

func TestGateway_RoundTripIVF(t *testing.T) {
	ctx := context.Background()
	dim := 8
	n := 400
	data := testutil.NewRNG(3).ClusteredVectors(n, dim, 8, 0.05)

	src := ivf.NewCPU(dim)
	require.NoError(t, src.Build(n, data, testutil.SequentialIDs(n, 0), index.BuildConfig{Dim: dim}))

	gw := persistence.NewMemoryGateway(persistence.WithCompression(persistence.CompressionZSTD))
	require.NoError(t, gw.Write(ctx, "ivf", src))

	got, err := gw.Read(ctx, "ivf")
	require.NoError(t, err)
	assert.Equal(t, index.IVFFlatCPU, got.Type())
	assert.Equal(t, n, got.Count())
	assertSameSearch(t, src, got, dim)
}

func TestGateway_RoundTripTree(t *testing.T) {
	ctx := context.Background()
	dim := 4
	n := 100
	data := testutil.NewRNG(5).FlatVectors(n, dim)

	src, err := index.New(index.TreeBasedCPU, dim)
	require.NoError(t, err)
	require.NoError(t, src.Build(n, data, testutil.SequentialIDs(n, 1), index.BuildConfig{Dim: dim}))

	gw := persistence.NewMemoryGateway()
	require.NoError(t, gw.Write(ctx, "tree", src))
	got, err := gw.Read(ctx, "tree")
	require.NoError(t, err)
	assert.Equal(t, index.TreeBasedCPU, got.Type())
	assertSameSearch(t, src, got, dim)
}

func TestEncode_SkipsIneffectiveCompression(t *testing.T) {
	// Random float mantissas do not compress by 10%.
	src := newFlat(t, 256, 64)
	data, err := persistence.Encode(src, persistence.CompressionLZ4)
	require.NoError(t, err)

	h, err := persistence.ParseHeader(data)
	require.NoError(t, err)
	assert.Equal(t, persistence.CompressionNone, h.Compression)
	assert.Equal(t, h.RawLen, h.StoredLen)
}

func TestEncode_CompressesRedundantBodies(t *testing.T) {
	dim := 16
	n := 512
	f := flat.New(dim)
	require.NoError(t, f.Add(n, make([]float32, n*dim), testutil.SequentialIDs(n, 0), index.AddConfig{Dim: dim}))

	for _, c := range []persistence.Compression{persistence.CompressionLZ4, persistence.CompressionZSTD} {
		data, err := persistence.Encode(f, c)
		require.NoError(t, err)
		h, err := persistence.ParseHeader(data)
		require.NoError(t, err)
		assert.Equal(t, c, h.Compression)
		assert.Less(t, h.StoredLen, h.RawLen)
		assert.Equal(t, uint64(len(data)-persistence.HeaderSize), h.StoredLen)

		got, err := persistence.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, n, got.Count())
	}
}

func TestHeader_Layout(t *testing.T) {
	src := newFlat(t, 3, 4)
	data, err := persistence.Encode(src, persistence.CompressionNone)
	require.NoError(t, err)

	assert.Equal(t, uint32(0x56585331), binary.LittleEndian.Uint32(data[0:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(data[4:]))
	assert.Equal(t, byte(index.FlatIDMap), data[8])
	assert.Equal(t, byte(0), data[9])
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(data[12:]))
	assert.Equal(t, uint64(3), binary.LittleEndian.Uint64(data[16:]))
	assert.Equal(t, uint64(len(data)-64), binary.LittleEndian.Uint64(data[32:]))
	assert.Equal(t, persistence.CRC32C(data[64:]), binary.LittleEndian.Uint32(data[40:]))
}

func TestDecode_Corruption(t *testing.T) {
	src := newFlat(t, 10, 4)
	good, err := persistence.Encode(src, persistence.CompressionNone)
	require.NoError(t, err)

	mutate := func(fn func(b []byte) []byte) []byte {
		b := append([]byte(nil), good...)
		return fn(b)
	}

	cases := map[string]struct {
		data []byte
		want error
	}{
		"short":     {data: good[:10], want: persistence.ErrInvalidLength},
		"magic":     {data: mutate(func(b []byte) []byte { b[0] ^= 0xFF; return b }), want: persistence.ErrInvalidMagic},
		"version":   {data: mutate(func(b []byte) []byte { b[4] = 9; return b }), want: persistence.ErrInvalidVersion},
		"compress":  {data: mutate(func(b []byte) []byte { b[9] = 7; return b }), want: persistence.ErrUnknownCompress},
		"body flip": {data: mutate(func(b []byte) []byte { b[len(b)-1] ^= 0x01; return b }), want: persistence.ErrChecksum},
		"truncated": {data: good[:len(good)-4], want: persistence.ErrInvalidLength},
		"count": {data: mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint64(b[16:], 11)
			return b
		}), want: persistence.ErrInvalidLength},
		"engine type": {data: mutate(func(b []byte) []byte { b[8] = 200; return b }), want: index.ErrUnsupportedEngineType},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := persistence.Decode(tc.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, persistence.ErrCorrupt)
		})
	}
}

func TestGateway_Errors(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	gw := persistence.NewGateway(store)

	_, err := gw.Read(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrRead)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.Put(ctx, "junk", []byte("not a segment")))
	_, err = gw.Read(ctx, "junk")
	assert.ErrorIs(t, err, persistence.ErrRead)
	assert.ErrorIs(t, err, persistence.ErrCorrupt)

	err = gw.Write(ctx, "", newFlat(t, 1, 4))
	assert.ErrorIs(t, err, persistence.ErrWrite)
	assert.ErrorIs(t, err, blobstore.ErrInvalidName)

	err = gw.Write(ctx, "nil", nil)
	assert.ErrorIs(t, err, persistence.ErrWrite)
}

func TestGateway_StatAndExists(t *testing.T) {
	ctx := context.Background()
	gw := persistence.NewMemoryGateway()

	ok, err := gw.Exists(ctx, "s")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, gw.Write(ctx, "s", newFlat(t, 12, 6)))

	ok, err = gw.Exists(ctx, "s")
	require.NoError(t, err)
	assert.True(t, ok)

	h, size, err := gw.Stat(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, index.FlatIDMap, h.EngineType)
	assert.Equal(t, uint32(6), h.Dimension)
	assert.Equal(t, uint64(12), h.Count)
	assert.Equal(t, int64(persistence.HeaderSize)+int64(h.StoredLen), size)
}

func TestGateway_LocalStoreThrottled(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 30})
	gw := persistence.NewGateway(blobstore.NewLocalStore(t.TempDir()),
		persistence.WithCompression(persistence.CompressionLZ4),
		persistence.WithResourceController(rc),
	)

	src := newFlat(t, 32, 4)
	require.NoError(t, gw.Write(ctx, "segments/flat.vxs", src))

	got, err := gw.Read(ctx, "segments/flat.vxs")
	require.NoError(t, err)
	assertSameSearch(t, src, got, 4)
}

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]persistence.Compression{
		"":     persistence.CompressionNone,
		"none": persistence.CompressionNone,
		"LZ4":  persistence.CompressionLZ4,
		"zstd": persistence.CompressionZSTD,
	} {
		got, err := persistence.ParseCompression(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := persistence.ParseCompression("brotli")
	assert.Error(t, err)
}
