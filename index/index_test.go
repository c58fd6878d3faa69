package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vexec/index"
	_ "github.com/hupe1980/vexec/index/flat"
	_ "github.com/hupe1980/vexec/index/ivf"
	_ "github.com/hupe1980/vexec/index/vptree"
)

func TestFactory_CapabilityMatrix(t *testing.T) {
	tests := []struct {
		typ  index.EngineType
		want index.Capabilities
	}{
		{index.FlatIDMap, index.Capabilities{IncrementalAdd: true, RawAccess: true}},
		{index.IVFFlatCPU, index.Capabilities{BulkBuild: true}},
		{index.IVFFlatGPU, index.Capabilities{BulkBuild: true, GPU: true}},
		{index.TreeBasedCPU, index.Capabilities{BulkBuild: true}},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			idx, err := index.New(tt.typ, 8)
			require.NoError(t, err)

			assert.Equal(t, tt.typ, idx.Type())
			assert.Equal(t, tt.want, idx.Capabilities())
			assert.Equal(t, 8, idx.Dimension())
			assert.Equal(t, 0, idx.Count())

			_, isFlat := idx.AsFlat()
			assert.Equal(t, tt.want.RawAccess, isFlat)
		})
	}
}

func TestFactory_Unsupported(t *testing.T) {
	_, err := index.New(index.Invalid, 8)
	assert.ErrorIs(t, err, index.ErrUnsupportedEngineType)

	_, err = index.New(index.EngineType(99), 8)
	assert.ErrorIs(t, err, index.ErrUnsupportedEngineType)

	_, err = index.New(index.FlatIDMap, 0)
	assert.ErrorIs(t, err, index.ErrInvalidDimension)
}

func TestRegistered(t *testing.T) {
	assert.Equal(t, []index.EngineType{
		index.FlatIDMap, index.IVFFlatCPU, index.IVFFlatGPU, index.TreeBasedCPU,
	}, index.Registered())
}
