package index

import (
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// EngineType identifies the algorithm backing an index.
type EngineType uint8

const (
	// Invalid is the zero value and never constructible.
	Invalid EngineType = iota
	// FlatIDMap stores raw vectors with caller ids and searches exhaustively.
	FlatIDMap
	// IVFFlatCPU partitions vectors into inverted lists around k-means centroids.
	IVFFlatCPU
	// IVFFlatGPU is IVFFlatCPU built on the accelerator path.
	IVFFlatGPU
	// TreeBasedCPU is a vantage-point tree with exact search.
	TreeBasedCPU
)

var engineTypeNames = map[EngineType]string{
	FlatIDMap:    "FlatIDMap",
	IVFFlatCPU:   "IVFFlatCPU",
	IVFFlatGPU:   "IVFFlatGPU",
	TreeBasedCPU: "TreeBasedCPU",
}

// String returns the canonical name of the engine type.
func (t EngineType) String() string {
	if name, ok := engineTypeNames[t]; ok {
		return name
	}
	if t == Invalid {
		return "Invalid"
	}
	return fmt.Sprintf("EngineType(%d)", uint8(t))
}

// IsIVF reports whether t is one of the inverted-file types.
func (t EngineType) IsIVF() bool {
	return t == IVFFlatCPU || t == IVFFlatGPU
}

// IsFlat reports whether t is the raw flat representation.
func (t EngineType) IsFlat() bool {
	return t == FlatIDMap
}

// ParseEngineType parses a case-insensitive engine type name.
// Short aliases ("flat", "ivf", "ivf_gpu", "tree") are accepted.
func ParseEngineType(s string) (EngineType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for t, name := range engineTypeNames {
		if strings.ToLower(name) == key {
			return t, nil
		}
	}
	switch key {
	case "flat", "flat_id_map":
		return FlatIDMap, nil
	case "ivf", "ivf_cpu", "ivfflat":
		return IVFFlatCPU, nil
	case "ivf_gpu":
		return IVFFlatGPU, nil
	case "tree", "vptree", "tree_cpu":
		return TreeBasedCPU, nil
	}
	return Invalid, fmt.Errorf("%w: %q", ErrUnsupportedEngineType, s)
}

// Capabilities describes what an index representation supports.
type Capabilities struct {
	// IncrementalAdd is true when Add may be called after construction.
	IncrementalAdd bool
	// BulkBuild is true when Build constructs the index from a full dataset.
	BulkBuild bool
	// RawAccess is true when AsFlat returns the raw vectors and ids.
	RawAccess bool
	// GPU is true when the index was built on the accelerator path.
	GPU bool
}

// AddConfig parameterizes incremental adds.
type AddConfig struct {
	Dim int
}

// BuildConfig parameterizes bulk builds.
type BuildConfig struct {
	Dim      int
	DeviceID int
	// NList is the number of inverted lists. Zero picks a size from the data.
	NList int
	// MaxIter bounds k-means iterations. Zero uses the implementation default.
	MaxIter int
	// Seed makes training deterministic.
	Seed int64
}

// SearchConfig parameterizes searches.
type SearchConfig struct {
	K      int
	NProbe int
}

// Index is the capability set every index representation provides.
//
// Vectors are row-major float32 slices of n*Dimension() values. Search writes
// n*k results into caller-owned buffers.
type Index interface {
	Type() EngineType
	Capabilities() Capabilities
	Dimension() int
	Count() int

	// Add appends n vectors with their ids. Types without IncrementalAdd
	// return ErrUnsupportedOperation.
	Add(n int, vectors []float32, ids []int64, cfg AddConfig) error

	// Build constructs the index from the full dataset, replacing any contents.
	Build(n int, vectors []float32, ids []int64, cfg BuildConfig) error

	// Search finds the k nearest neighbors for each of n queries.
	Search(n int, queries []float32, k int, distances []float32, labels []int64, cfg SearchConfig) error

	// AsFlat exposes raw vectors and ids when RawAccess is supported.
	AsFlat() (Flat, bool)

	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// Flat is the raw-access view of a flat index.
type Flat interface {
	Index

	// RawVectors returns the row-major vector data. Callers must not modify it.
	RawVectors() []float32
	// RawIDs returns ids parallel to RawVectors. Callers must not modify it.
	RawIDs() []int64
	// IDs returns the set of ids held by the index.
	IDs() *roaring64.Bitmap
}
