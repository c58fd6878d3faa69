package testutil

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/vexec/distance"
)

// SearchResult represents a search result.
type SearchResult struct {
	ID       int64
	Distance float32
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewSource(r.seed))
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// FlatVectors generates num row-major vectors with values in range [0, 1).
// This is the layout the index and engine APIs consume.
func (r *RNG) FlatVectors(num, dimensions int) []float32 {
	data := make([]float32, num*dimensions)
	r.FillUniform(data)
	return data
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num int, dimensions int) [][]float32 {
	return Rows(r.FlatVectors(num, dimensions), dimensions)
}

// GaussianVectors generates random vectors with values from a standard normal distribution.
func (r *RNG) GaussianVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	for i := range data {
		data[i] = float32(r.rand.NormFloat64())
	}
	return Rows(data, dimensions)
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
// Uses Gaussian distribution for uniform distribution on the sphere.
func (r *RNG) UnitVectors(num int, dimensions int) [][]float32 {
	vectors := r.GaussianVectors(num, dimensions)
	for _, vec := range vectors {
		if !distance.NormalizeL2InPlace(vec) {
			vec[0] = 1
		}
	}
	return vectors
}

// ClusteredVectors generates row-major vectors clustered around random
// centroids. IVF recall tests use it since uniform data has no structure.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float32) []float32 {
	centroids := r.UnitVectors(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	for i := range num {
		centroid := centroids[i%clusters]
		vec := data[i*dim : (i+1)*dim]
		for j := range dim {
			vec[j] = centroid[j] + float32(r.rand.NormFloat64())*spread
		}
	}
	return data
}

// Rows splits row-major data into per-vector slices sharing the backing array.
func Rows(data []float32, dim int) [][]float32 {
	n := len(data) / dim
	rows := make([][]float32, n)
	for i := range n {
		rows[i] = data[i*dim : (i+1)*dim]
	}
	return rows
}

// SequentialIDs returns ids start, start+1, ..., start+n-1.
func SequentialIDs(n int, start int64) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = start + int64(i)
	}
	return ids
}

// ComputeRecall computes recall@k by comparing approximate results against ground truth.
func ComputeRecall(groundTruth, approximate []SearchResult) float64 {
	if len(groundTruth) == 0 || len(approximate) == 0 {
		if len(groundTruth) == 0 && len(approximate) == 0 {
			return 1.0
		}
		return 0.0
	}

	k := min(len(approximate), len(groundTruth))

	truthSet := make(map[int64]struct{}, k)
	for i := range k {
		truthSet[groundTruth[i].ID] = struct{}{}
	}

	hits := 0
	for _, r := range approximate {
		if _, ok := truthSet[r.ID]; ok {
			hits++
		}
	}

	return float64(hits) / float64(k)
}

// Results zips parallel label and distance buffers, dropping empty (-1) slots.
func Results(labels []int64, distances []float32) []SearchResult {
	out := make([]SearchResult, 0, len(labels))
	for i, l := range labels {
		if l < 0 {
			continue
		}
		out = append(out, SearchResult{ID: l, Distance: distances[i]})
	}
	return out
}

// BruteForceSearch performs exact search for ground truth.
func BruteForceSearch(data []float32, ids []int64, dim int, query []float32, k int) []SearchResult {
	n := len(data) / dim
	results := make([]SearchResult, n)
	for i := range n {
		results[i] = SearchResult{ID: ids[i], Distance: distance.SquaredL2(query, data[i*dim:(i+1)*dim])}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}
