// Package ivf implements the inverted-file indexes IVFFlatCPU and IVFFlatGPU.
//
// A k-means coarse quantizer partitions vectors into nlist inverted lists.
// Search probes the nprobe lists whose centroids are closest to the query and
// scans them exhaustively.
package ivf

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/hupe1980/vexec/distance"
	"github.com/hupe1980/vexec/index"
	"github.com/hupe1980/vexec/internal/kmeans"
	"github.com/hupe1980/vexec/internal/queue"
	"github.com/hupe1980/vexec/persistence"
)

// DefaultMaxIter bounds k-means training when BuildConfig.MaxIter is zero.
const DefaultMaxIter = 25

func init() {
	index.Register(index.IVFFlatCPU, func(dim int) (index.Index, error) {
		return NewCPU(dim), nil
	})
	index.Register(index.IVFFlatGPU, func(dim int) (index.Index, error) {
		return NewGPU(dim), nil
	})
}

// Compile time check to ensure IVF satisfies the index interface.
var _ index.Index = (*IVF)(nil)

// IVF is an inverted-file index with flat (uncompressed) lists.
type IVF struct {
	typ      index.EngineType
	dim      int
	deviceID int
	trained  bool

	centroids []float32
	listIDs   [][]int64
	listVecs  [][]float32
	count     int
}

// NewCPU creates an untrained IVFFlatCPU index.
func NewCPU(dim int) *IVF {
	return &IVF{typ: index.IVFFlatCPU, dim: dim}
}

// NewGPU creates an untrained IVFFlatGPU index.
func NewGPU(dim int) *IVF {
	return &IVF{typ: index.IVFFlatGPU, dim: dim}
}

// Type implements index.Index.
func (x *IVF) Type() index.EngineType { return x.typ }

// Capabilities implements index.Index.
func (x *IVF) Capabilities() index.Capabilities {
	return index.Capabilities{BulkBuild: true, GPU: x.typ == index.IVFFlatGPU}
}

// Dimension implements index.Index.
func (x *IVF) Dimension() int { return x.dim }

// Count implements index.Index.
func (x *IVF) Count() int { return x.count }

// NList returns the number of inverted lists.
func (x *IVF) NList() int { return len(x.listIDs) }

// DeviceID returns the device the index was built on, or -1 for CPU builds.
func (x *IVF) DeviceID() int {
	if x.typ != index.IVFFlatGPU {
		return -1
	}
	return x.deviceID
}

// Add is not supported; IVF indexes are bulk-built.
func (x *IVF) Add(int, []float32, []int64, index.AddConfig) error {
	return fmt.Errorf("%w: add on %s", index.ErrUnsupportedOperation, x.typ)
}

// DefaultNList picks the list count for n vectors: 4*sqrt(n) clamped to [1, n].
func DefaultNList(n int) int {
	nlist := int(4 * math.Sqrt(float64(n)))
	return max(1, min(nlist, n))
}

// Build trains the coarse quantizer on the dataset and fills the lists.
func (x *IVF) Build(n int, vectors []float32, ids []int64, cfg index.BuildConfig) error {
	if cfg.Dim != 0 && cfg.Dim != x.dim {
		return &index.ErrDimensionMismatch{Expected: x.dim, Actual: cfg.Dim}
	}
	if err := index.CheckInput(x.dim, n, vectors, ids); err != nil {
		return err
	}

	workers := 1
	if x.typ == index.IVFFlatGPU {
		if cfg.DeviceID < 0 {
			return fmt.Errorf("%w: %d", index.ErrInvalidDevice, cfg.DeviceID)
		}
		workers = runtime.GOMAXPROCS(0)
	}

	nlist := cfg.NList
	if nlist <= 0 {
		nlist = DefaultNList(n)
	}
	nlist = min(nlist, n)
	maxIter := cfg.MaxIter
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}

	data := vectors[:n*x.dim]
	var centroids []float32
	if n > 0 {
		var err error
		centroids, err = kmeans.TrainKMeans(context.Background(), data, x.dim, nlist, distance.MetricL2, maxIter,
			kmeans.WithSeed(cfg.Seed), kmeans.WithWorkers(workers))
		if err != nil {
			return fmt.Errorf("ivf: train: %w", err)
		}
	}

	assignments, err := assignLists(data, x.dim, centroids, workers)
	if err != nil {
		return fmt.Errorf("ivf: assign: %w", err)
	}

	listIDs := make([][]int64, nlist)
	listVecs := make([][]float32, nlist)
	for i, list := range assignments {
		listIDs[list] = append(listIDs[list], ids[i])
		listVecs[list] = append(listVecs[list], data[i*x.dim:(i+1)*x.dim]...)
	}

	x.centroids = centroids
	x.listIDs = listIDs
	x.listVecs = listVecs
	x.count = n
	x.deviceID = cfg.DeviceID
	x.trained = true
	return nil
}

// Search probes the nprobe nearest lists for each query.
// nprobe <= 0 probes a single list; nprobe above nlist probes every list.
func (x *IVF) Search(n int, queries []float32, k int, distances []float32, labels []int64, cfg index.SearchConfig) error {
	if err := index.CheckSearch(x.dim, n, queries, k, distances, labels); err != nil {
		return err
	}
	if !x.trained {
		return index.ErrNotTrained
	}

	nprobe := max(cfg.NProbe, 1)
	top := queue.NewTopK(k)
	scratch := make([]float32, x.maxListLen())
	for q := 0; q < n; q++ {
		query := queries[q*x.dim : (q+1)*x.dim]
		if len(x.listIDs) > 0 {
			probes, err := kmeans.FindClosestCentroids(query, x.centroids, x.dim, nprobe, distance.MetricL2)
			if err != nil {
				return err
			}
			for _, list := range probes {
				ids := x.listIDs[list]
				dists := scratch[:len(ids)]
				distance.SquaredL2Batch(query, x.listVecs[list], x.dim, dists)
				for i, id := range ids {
					top.Offer(id, dists[i])
				}
			}
		}
		top.Drain(distances[q*k:(q+1)*k], labels[q*k:(q+1)*k])
	}
	return nil
}

func (x *IVF) maxListLen() int {
	n := 0
	for _, ids := range x.listIDs {
		n = max(n, len(ids))
	}
	return n
}

// AsFlat reports false; IVF lists are not exposed as raw storage.
func (x *IVF) AsFlat() (index.Flat, bool) { return nil, false }

// MarshalBinary encodes the quantizer and every inverted list.
func (x *IVF) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	w := persistence.NewBinaryIndexWriter(&buf)

	var trained uint32
	if x.trained {
		trained = 1
	}
	header := []uint32{uint32(x.dim), uint32(len(x.listIDs)), uint32(int32(x.deviceID)), trained}
	if err := w.WriteUint32Slice(header); err != nil {
		return nil, err
	}
	if err := w.WriteUint64(uint64(x.count)); err != nil {
		return nil, err
	}
	if err := w.WriteFloat32Slice(x.centroids); err != nil {
		return nil, err
	}
	for i, ids := range x.listIDs {
		if err := w.WriteUint64(uint64(len(ids))); err != nil {
			return nil, err
		}
		if err := w.WriteInt64Slice(ids); err != nil {
			return nil, err
		}
		if err := w.WriteFloat32Slice(x.listVecs[i]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores an index encoded by MarshalBinary.
func (x *IVF) UnmarshalBinary(data []byte) error {
	r := persistence.NewBinaryIndexReader(bytes.NewReader(data))

	header, err := r.ReadUint32Slice(4)
	if err != nil {
		return fmt.Errorf("ivf: read header: %w", err)
	}
	dim, nlist := int(header[0]), int(header[1])
	if x.dim != 0 && dim != x.dim {
		return &index.ErrDimensionMismatch{Expected: x.dim, Actual: dim}
	}
	if dim <= 0 || nlist > len(data) {
		return fmt.Errorf("ivf: %w: dim=%d nlist=%d", persistence.ErrCorrupt, dim, nlist)
	}
	count, err := r.ReadLen(uint64(len(data)))
	if err != nil {
		return fmt.Errorf("ivf: read count: %w", err)
	}
	centroids, err := r.ReadFloat32Slice(nlist * dim)
	if err != nil {
		return fmt.Errorf("ivf: read centroids: %w", err)
	}

	listIDs := make([][]int64, nlist)
	listVecs := make([][]float32, nlist)
	total := 0
	for i := 0; i < nlist; i++ {
		size, err := r.ReadLen(uint64(count))
		if err != nil {
			return fmt.Errorf("ivf: read list %d: %w", i, err)
		}
		if listIDs[i], err = r.ReadInt64Slice(size); err != nil {
			return fmt.Errorf("ivf: read list %d ids: %w", i, err)
		}
		if listVecs[i], err = r.ReadFloat32Slice(size * dim); err != nil {
			return fmt.Errorf("ivf: read list %d vectors: %w", i, err)
		}
		total += size
	}
	if total != count {
		return fmt.Errorf("ivf: %w: lists hold %d vectors, header says %d", persistence.ErrCorrupt, total, count)
	}

	x.dim = dim
	x.deviceID = int(int32(header[2]))
	x.trained = header[3] == 1
	x.centroids = centroids
	x.listIDs = listIDs
	x.listVecs = listVecs
	x.count = count
	return nil
}
