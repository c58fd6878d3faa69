// Package vptree implements the TreeBasedCPU index: a vantage-point tree over
// Euclidean distance with exact k-NN search.
//
// The tree is persisted as its raw vectors and ids and rebuilt on load. The
// build is deterministic, so a reloaded tree has the same shape.
package vptree

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/hupe1980/vexec/distance"
	"github.com/hupe1980/vexec/index"
	"github.com/hupe1980/vexec/internal/queue"
	"github.com/hupe1980/vexec/persistence"
)

func init() {
	index.Register(index.TreeBasedCPU, func(dim int) (index.Index, error) {
		return New(dim), nil
	})
}

// Compile time check to ensure Tree satisfies the index interface.
var _ index.Index = (*Tree)(nil)

const nilNode = -1

type node struct {
	point int32   // row in vectors/ids
	thr   float32 // median distance from the vantage point
	left  int32   // points with distance <= thr
	right int32   // points with distance >= thr
}

// Tree is a vantage-point tree.
type Tree struct {
	dim     int
	vectors []float32
	ids     []int64
	nodes   []node
	root    int32
}

// New creates an empty tree of the given dimension.
func New(dim int) *Tree {
	return &Tree{dim: dim, root: nilNode}
}

// Type implements index.Index.
func (t *Tree) Type() index.EngineType { return index.TreeBasedCPU }

// Capabilities implements index.Index.
func (t *Tree) Capabilities() index.Capabilities {
	return index.Capabilities{BulkBuild: true}
}

// Dimension implements index.Index.
func (t *Tree) Dimension() int { return t.dim }

// Count implements index.Index.
func (t *Tree) Count() int { return len(t.ids) }

// Add is not supported; trees are bulk-built.
func (t *Tree) Add(int, []float32, []int64, index.AddConfig) error {
	return fmt.Errorf("%w: add on %s", index.ErrUnsupportedOperation, index.TreeBasedCPU)
}

// Build constructs the tree from the dataset, replacing any contents.
func (t *Tree) Build(n int, vectors []float32, ids []int64, cfg index.BuildConfig) error {
	if cfg.Dim != 0 && cfg.Dim != t.dim {
		return &index.ErrDimensionMismatch{Expected: t.dim, Actual: cfg.Dim}
	}
	if err := index.CheckInput(t.dim, n, vectors, ids); err != nil {
		return err
	}
	t.build(append([]float32(nil), vectors[:n*t.dim]...), append([]int64(nil), ids[:n]...))
	return nil
}

func (t *Tree) build(vectors []float32, ids []int64) {
	t.vectors = vectors
	t.ids = ids
	t.nodes = make([]node, 0, len(ids))

	points := make([]int32, len(ids))
	for i := range points {
		points[i] = int32(i)
	}
	t.root = t.buildVP(points, make([]float32, len(ids)))
}

func (t *Tree) vec(i int32) []float32 {
	return t.vectors[int(i)*t.dim : (int(i)+1)*t.dim]
}

// buildVP takes the last point as vantage point and splits the rest at the
// median distance. scratch must be at least len(points) long.
func (t *Tree) buildVP(points []int32, scratch []float32) int32 {
	if len(points) == 0 {
		return nilNode
	}
	vp := points[len(points)-1]
	points = points[:len(points)-1]

	id := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{point: vp, left: nilNode, right: nilNode})
	if len(points) == 0 {
		return id
	}

	dists := scratch[:len(points)]
	for k, p := range points {
		dists[k] = distance.L2(t.vec(vp), t.vec(p))
	}
	sort.Sort(byDist{points: points, dists: dists})

	mid := len(points) / 2
	t.nodes[id].thr = dists[mid]
	left := t.buildVP(points[:mid+1], scratch)
	right := t.buildVP(points[mid+1:], scratch)
	t.nodes[id].left = left
	t.nodes[id].right = right
	return id
}

type byDist struct {
	points []int32
	dists  []float32
}

func (b byDist) Len() int           { return len(b.points) }
func (b byDist) Less(i, j int) bool { return b.dists[i] < b.dists[j] }
func (b byDist) Swap(i, j int) {
	b.points[i], b.points[j] = b.points[j], b.points[i]
	b.dists[i], b.dists[j] = b.dists[j], b.dists[i]
}

// Search finds the exact k nearest neighbors, pruning subtrees with the
// triangle inequality.
func (t *Tree) Search(n int, queries []float32, k int, distances []float32, labels []int64, _ index.SearchConfig) error {
	if err := index.CheckSearch(t.dim, n, queries, k, distances, labels); err != nil {
		return err
	}

	top := queue.NewTopK(k)
	for q := 0; q < n; q++ {
		query := queries[q*t.dim : (q+1)*t.dim]
		t.search(t.root, query, top)
		top.Drain(distances[q*k:(q+1)*k], labels[q*k:(q+1)*k])
	}
	return nil
}

func (t *Tree) search(id int32, query []float32, top *queue.TopK) {
	if id == nilNode {
		return
	}
	nd := &t.nodes[id]
	sq := distance.SquaredL2(query, t.vec(nd.point))
	top.Offer(t.ids[nd.point], sq)
	d := float32(math.Sqrt(float64(sq)))

	tau := func() float32 { return float32(math.Sqrt(float64(top.Worst()))) }
	if d < nd.thr {
		if d-tau() <= nd.thr {
			t.search(nd.left, query, top)
		}
		if d+tau() >= nd.thr {
			t.search(nd.right, query, top)
		}
		return
	}
	if d+tau() >= nd.thr {
		t.search(nd.right, query, top)
	}
	if d-tau() <= nd.thr {
		t.search(nd.left, query, top)
	}
}

// AsFlat reports false; the tree does not expose raw storage.
func (t *Tree) AsFlat() (index.Flat, bool) { return nil, false }

// MarshalBinary encodes dimension, ids and vectors.
func (t *Tree) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	w := persistence.NewBinaryIndexWriter(&buf)
	if err := w.WriteUint32(uint32(t.dim)); err != nil {
		return nil, err
	}
	if err := w.WriteUint64(uint64(len(t.ids))); err != nil {
		return nil, err
	}
	if err := w.WriteInt64Slice(t.ids); err != nil {
		return nil, err
	}
	if err := w.WriteFloat32Slice(t.vectors); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes the dataset and rebuilds the tree.
func (t *Tree) UnmarshalBinary(data []byte) error {
	r := persistence.NewBinaryIndexReader(bytes.NewReader(data))

	dim, err := r.ReadUint32()
	if err != nil {
		return fmt.Errorf("vptree: read dimension: %w", err)
	}
	if t.dim != 0 && int(dim) != t.dim {
		return &index.ErrDimensionMismatch{Expected: t.dim, Actual: int(dim)}
	}
	n, err := r.ReadLen(uint64(len(data)) / 8)
	if err != nil {
		return fmt.Errorf("vptree: read count: %w", err)
	}
	ids, err := r.ReadInt64Slice(n)
	if err != nil {
		return fmt.Errorf("vptree: read ids: %w", err)
	}
	vectors, err := r.ReadFloat32Slice(n * int(dim))
	if err != nil {
		return fmt.Errorf("vptree: read vectors: %w", err)
	}

	t.dim = int(dim)
	t.build(vectors, ids)
	return nil
}
