package flat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vexec/index"
	"github.com/hupe1980/vexec/testutil"
)

func TestFlat(t *testing.T) {
	t.Run("Add", func(t *testing.T) {
		f := New(3)

		err := f.Add(2, []float32{1, 2, 3, 4, 5, 6}, []int64{10, 11}, index.AddConfig{Dim: 3})
		require.NoError(t, err)
		assert.Equal(t, 2, f.Count())
		assert.True(t, f.IDs().Contains(10))
		assert.Equal(t, []int64{10, 11}, f.RawIDs())

		err = f.Add(1, []float32{1, 2}, []int64{12}, index.AddConfig{Dim: 2})
		assert.IsType(t, &index.ErrDimensionMismatch{}, err)

		err = f.Add(2, []float32{1, 2, 3}, []int64{12, 13}, index.AddConfig{Dim: 3})
		assert.ErrorIs(t, err, index.ErrShortBuffer)
		assert.Equal(t, 2, f.Count())
	})

	t.Run("DuplicateIDs", func(t *testing.T) {
		f := New(1)
		require.NoError(t, f.Add(2, []float32{1, 2}, []int64{5, 5}, index.AddConfig{}))
		assert.Equal(t, 2, f.Count())
		assert.Equal(t, uint64(1), f.IDs().GetCardinality())
	})

	t.Run("Search", func(t *testing.T) {
		f := New(3)
		require.NoError(t, f.Add(3, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, []int64{100, 101, 102}, index.AddConfig{}))

		dists := make([]float32, 2)
		labels := make([]int64, 2)
		err := f.Search(1, []float32{7, 8, 9}, 2, dists, labels, index.SearchConfig{K: 2})
		require.NoError(t, err)
		assert.Equal(t, []int64{102, 101}, labels)
		assert.Equal(t, float32(0), dists[0])
		assert.Equal(t, float32(27), dists[1])
	})

	t.Run("SearchPadsWhenFewerThanK", func(t *testing.T) {
		f := New(2)
		require.NoError(t, f.Add(1, []float32{0, 0}, []int64{1}, index.AddConfig{}))

		dists := make([]float32, 3)
		labels := make([]int64, 3)
		require.NoError(t, f.Search(1, []float32{1, 1}, 3, dists, labels, index.SearchConfig{}))
		assert.Equal(t, []int64{1, -1, -1}, labels)
		assert.True(t, math.IsInf(float64(dists[2]), 1))
	})

	t.Run("SearchInvalidK", func(t *testing.T) {
		f := New(2)
		err := f.Search(1, []float32{1, 1}, 0, nil, nil, index.SearchConfig{})
		assert.ErrorIs(t, err, index.ErrInvalidK)
	})

	t.Run("BuildReplaces", func(t *testing.T) {
		f := New(1)
		require.NoError(t, f.Add(1, []float32{1}, []int64{1}, index.AddConfig{}))
		require.NoError(t, f.Build(2, []float32{2, 3}, []int64{2, 3}, index.BuildConfig{Dim: 1}))
		assert.Equal(t, []int64{2, 3}, f.RawIDs())
		assert.False(t, f.IDs().Contains(1))
	})
}

func TestFlat_BinaryRoundTrip(t *testing.T) {
	rng := testutil.NewRNG(1)
	const dim, n = 16, 200

	f := New(dim)
	vectors := rng.FlatVectors(n, dim)
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i * 3)
	}
	require.NoError(t, f.Add(n, vectors, ids, index.AddConfig{Dim: dim}))

	data, err := f.MarshalBinary()
	require.NoError(t, err)

	restored, err := index.New(index.FlatIDMap, dim)
	require.NoError(t, err)
	require.NoError(t, restored.UnmarshalBinary(data))

	assert.Equal(t, n, restored.Count())
	raw, ok := restored.AsFlat()
	require.True(t, ok)
	assert.Equal(t, ids, raw.RawIDs())
	assert.Equal(t, vectors, raw.RawVectors())
	assert.True(t, raw.IDs().Contains(uint64(ids[n-1])))

	t.Run("DimensionMismatch", func(t *testing.T) {
		other := New(dim + 1)
		assert.IsType(t, &index.ErrDimensionMismatch{}, other.UnmarshalBinary(data))
	})

	t.Run("Truncated", func(t *testing.T) {
		assert.Error(t, New(dim).UnmarshalBinary(data[:len(data)-4]))
	})
}
