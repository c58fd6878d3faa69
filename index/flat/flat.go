// Package flat implements the FlatIDMap index: raw vectors stored alongside
// caller-assigned int64 ids and searched exhaustively.
package flat

import (
	"bytes"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/vexec/distance"
	"github.com/hupe1980/vexec/index"
	"github.com/hupe1980/vexec/internal/queue"
	"github.com/hupe1980/vexec/persistence"
)

func init() {
	index.Register(index.FlatIDMap, func(dim int) (index.Index, error) {
		return New(dim), nil
	})
}

// Compile time check to ensure Flat satisfies the raw-access interface.
var _ index.Flat = (*Flat)(nil)

// Flat is a brute-force index over raw vectors.
//
// It is not safe for concurrent mutation; concurrent searches are safe when no
// Add or Build runs alongside them.
type Flat struct {
	dim     int
	vectors []float32
	ids     []int64
	idset   *roaring64.Bitmap
}

// New creates an empty flat index of the given dimension.
func New(dim int) *Flat {
	return &Flat{
		dim:   dim,
		idset: roaring64.New(),
	}
}

// Type implements index.Index.
func (f *Flat) Type() index.EngineType { return index.FlatIDMap }

// Capabilities implements index.Index.
func (f *Flat) Capabilities() index.Capabilities {
	return index.Capabilities{IncrementalAdd: true, RawAccess: true}
}

// Dimension implements index.Index.
func (f *Flat) Dimension() int { return f.dim }

// Count implements index.Index.
func (f *Flat) Count() int { return len(f.ids) }

// Add appends n vectors. Duplicate ids are accepted.
func (f *Flat) Add(n int, vectors []float32, ids []int64, cfg index.AddConfig) error {
	if cfg.Dim != 0 && cfg.Dim != f.dim {
		return &index.ErrDimensionMismatch{Expected: f.dim, Actual: cfg.Dim}
	}
	if err := index.CheckInput(f.dim, n, vectors, ids); err != nil {
		return err
	}
	f.vectors = append(f.vectors, vectors[:n*f.dim]...)
	f.ids = append(f.ids, ids[:n]...)
	for _, id := range ids[:n] {
		f.idset.Add(uint64(id))
	}
	return nil
}

// Build replaces the contents with the given dataset.
func (f *Flat) Build(n int, vectors []float32, ids []int64, cfg index.BuildConfig) error {
	if cfg.Dim != 0 && cfg.Dim != f.dim {
		return &index.ErrDimensionMismatch{Expected: f.dim, Actual: cfg.Dim}
	}
	if err := index.CheckInput(f.dim, n, vectors, ids); err != nil {
		return err
	}
	f.vectors = append(make([]float32, 0, n*f.dim), vectors[:n*f.dim]...)
	f.ids = append(make([]int64, 0, n), ids[:n]...)
	f.idset = roaring64.New()
	for _, id := range f.ids {
		f.idset.Add(uint64(id))
	}
	return nil
}

// Search performs an exhaustive k-NN search for each query.
func (f *Flat) Search(n int, queries []float32, k int, distances []float32, labels []int64, _ index.SearchConfig) error {
	if err := index.CheckSearch(f.dim, n, queries, k, distances, labels); err != nil {
		return err
	}

	top := queue.NewTopK(k)
	scratch := make([]float32, len(f.ids))
	for q := 0; q < n; q++ {
		distance.SquaredL2Batch(queries[q*f.dim:(q+1)*f.dim], f.vectors, f.dim, scratch)
		for i, d := range scratch {
			top.Offer(f.ids[i], d)
		}
		top.Drain(distances[q*k:(q+1)*k], labels[q*k:(q+1)*k])
	}
	return nil
}

// AsFlat implements index.Index.
func (f *Flat) AsFlat() (index.Flat, bool) { return f, true }

// RawVectors returns the row-major vector data.
func (f *Flat) RawVectors() []float32 { return f.vectors }

// RawIDs returns the ids parallel to RawVectors.
func (f *Flat) RawIDs() []int64 { return f.ids }

// IDs returns the set of ids held by the index.
func (f *Flat) IDs() *roaring64.Bitmap { return f.idset }

// MarshalBinary encodes dimension, count, ids and vectors.
func (f *Flat) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(12 + len(f.ids)*8 + len(f.vectors)*4)

	w := persistence.NewBinaryIndexWriter(&buf)
	if err := w.WriteUint32(uint32(f.dim)); err != nil {
		return nil, err
	}
	if err := w.WriteUint64(uint64(len(f.ids))); err != nil {
		return nil, err
	}
	if err := w.WriteInt64Slice(f.ids); err != nil {
		return nil, err
	}
	if err := w.WriteFloat32Slice(f.vectors); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores an index encoded by MarshalBinary.
func (f *Flat) UnmarshalBinary(data []byte) error {
	r := persistence.NewBinaryIndexReader(bytes.NewReader(data))

	dim, err := r.ReadUint32()
	if err != nil {
		return fmt.Errorf("flat: read dimension: %w", err)
	}
	if f.dim != 0 && int(dim) != f.dim {
		return &index.ErrDimensionMismatch{Expected: f.dim, Actual: int(dim)}
	}
	n, err := r.ReadLen(uint64(len(data)) / 8)
	if err != nil {
		return fmt.Errorf("flat: read count: %w", err)
	}
	ids, err := r.ReadInt64Slice(n)
	if err != nil {
		return fmt.Errorf("flat: read ids: %w", err)
	}
	vectors, err := r.ReadFloat32Slice(n * int(dim))
	if err != nil {
		return fmt.Errorf("flat: read vectors: %w", err)
	}

	f.dim = int(dim)
	f.ids = ids
	f.vectors = vectors
	f.idset = roaring64.New()
	for _, id := range ids {
		f.idset.Add(uint64(id))
	}
	return nil
}
