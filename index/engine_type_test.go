package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineType(t *testing.T) {
	assert.Equal(t, "IVFFlatGPU", IVFFlatGPU.String())
	assert.Equal(t, "Invalid", Invalid.String())
	assert.Equal(t, "EngineType(42)", EngineType(42).String())

	assert.True(t, IVFFlatCPU.IsIVF())
	assert.True(t, IVFFlatGPU.IsIVF())
	assert.False(t, TreeBasedCPU.IsIVF())
	assert.True(t, FlatIDMap.IsFlat())
	assert.False(t, IVFFlatCPU.IsFlat())
}

func TestParseEngineType(t *testing.T) {
	for in, want := range map[string]EngineType{
		"FlatIDMap":    FlatIDMap,
		"ivfflatcpu":   IVFFlatCPU,
		" IVFFlatGPU ": IVFFlatGPU,
		"tree":         TreeBasedCPU,
		"flat":         FlatIDMap,
		"ivf_gpu":      IVFFlatGPU,
	} {
		got, err := ParseEngineType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseEngineType("hnsw")
	assert.ErrorIs(t, err, ErrUnsupportedEngineType)
}

func TestCheckInput(t *testing.T) {
	assert.NoError(t, CheckInput(2, 2, make([]float32, 4), make([]int64, 2)))
	assert.ErrorIs(t, CheckInput(2, 2, make([]float32, 3), make([]int64, 2)), ErrShortBuffer)
	assert.ErrorIs(t, CheckInput(2, 2, make([]float32, 4), make([]int64, 1)), ErrShortBuffer)
	assert.ErrorIs(t, CheckInput(2, -1, nil, nil), ErrShortBuffer)
}

func TestCheckSearch(t *testing.T) {
	assert.NoError(t, CheckSearch(2, 1, make([]float32, 2), 3, make([]float32, 3), make([]int64, 3)))
	assert.ErrorIs(t, CheckSearch(2, 1, make([]float32, 2), 0, nil, nil), ErrInvalidK)
	assert.ErrorIs(t, CheckSearch(2, 1, make([]float32, 2), 3, make([]float32, 2), make([]int64, 3)), ErrShortBuffer)
	assert.ErrorIs(t, CheckSearch(2, 2, make([]float32, 2), 1, make([]float32, 2), make([]int64, 2)), ErrShortBuffer)
}

func TestRegisterInvalidPanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(Invalid, func(int) (Index, error) { return nil, nil })
	})
}
