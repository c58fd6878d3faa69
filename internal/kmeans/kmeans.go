package kmeans

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vexec/distance"
)

type options struct {
	seed    int64
	workers int
}

// Option configures training.
type Option func(*options)

// WithSeed makes centroid initialization deterministic.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithWorkers splits the assignment step across n parallel lanes.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// TrainKMeans trains k centroids from the given vectors using Lloyd's algorithm.
// It returns the flattened centroids (k * dim), or nil if there are fewer
// than k vectors.
func TrainKMeans(ctx context.Context, vectors []float32, dim int, k int, metric distance.Metric, maxIter int, optFns ...Option) ([]float32, error) {
	o := options{seed: 1, workers: 1}
	for _, fn := range optFns {
		fn(&o)
	}

	distFunc, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}

	n := len(vectors) / dim
	if n < k || k <= 0 {
		return nil, nil // Not enough vectors to cluster
	}

	rng := rand.New(rand.NewSource(o.seed))
	centroids := make([]float32, k*dim)

	// Initialize centroids from distinct data points
	perm := rng.Perm(n)
	for i := 0; i < k; i++ {
		copy(centroids[i*dim:(i+1)*dim], vectors[perm[i]*dim:(perm[i]+1)*dim])
	}

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	counts := make([]int, k)
	sums := make([]float32, k*dim)

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed, err := assign(ctx, vectors, dim, centroids, assignments, distFunc, o.workers)
		if err != nil {
			return nil, err
		}
		if !changed {
			break
		}

		// Update step
		clear(sums)
		clear(counts)

		for i := 0; i < n; i++ {
			cluster := assignments[i]
			vec := vectors[i*dim : (i+1)*dim]
			for d := 0; d < dim; d++ {
				sums[cluster*dim+d] += vec[d]
			}
			counts[cluster]++
		}

		for j := 0; j < k; j++ {
			if counts[j] > 0 {
				scale := 1.0 / float32(counts[j])
				for d := 0; d < dim; d++ {
					centroids[j*dim+d] = sums[j*dim+d] * scale
				}
			} else {
				// Re-seed empty cluster with a random point
				idx := rng.Intn(n)
				copy(centroids[j*dim:(j+1)*dim], vectors[idx*dim:(idx+1)*dim])
			}
		}
	}

	return centroids, nil
}

// assign runs the assignment step, optionally across parallel lanes.
// It reports whether any assignment changed.
func assign(ctx context.Context, vectors []float32, dim int, centroids []float32, assignments []int, distFunc distance.Func, workers int) (bool, error) {
	n := len(assignments)
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers
	changed := make([]bool, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				if i%4096 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				best := nearest(vectors[i*dim:(i+1)*dim], centroids, dim, distFunc)
				if assignments[i] != best {
					assignments[i] = best
					changed[w] = true
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	for _, c := range changed {
		if c {
			return true, nil
		}
	}
	return false, nil
}

// ErrNoCentroids is returned when assigning against an empty centroid set.
var ErrNoCentroids = errors.New("kmeans: no centroids")

// nearest returns the closest centroid. Distances that overflow to +Inf or
// are NaN still resolve to a valid cluster; ties keep the lowest index.
func nearest(vec []float32, centroids []float32, dim int, distFunc distance.Func) int {
	k := len(centroids) / dim
	if k == 0 {
		return -1
	}
	best := 0
	minDist := float32(math.Inf(1))
	for j := 0; j < k; j++ {
		d := distFunc(vec, centroids[j*dim:(j+1)*dim])
		if d < minDist {
			minDist = d
			best = j
		}
	}
	return best
}

// AssignPartition finds the closest centroid for a vector.
func AssignPartition(vec []float32, centroids []float32, dim int, metric distance.Metric) (int, error) {
	distFunc, err := distance.Provider(metric)
	if err != nil {
		return -1, err
	}
	if dim <= 0 || len(centroids) < dim {
		return -1, ErrNoCentroids
	}
	return nearest(vec, centroids, dim, distFunc), nil
}

type centroidDist struct {
	id   int
	dist float32
}

// FindClosestCentroids returns the indices of the n closest centroids to the query vector.
func FindClosestCentroids(query []float32, centroids []float32, dim int, n int, metric distance.Metric) ([]int, error) {
	k := len(centroids) / dim
	if n > k {
		n = k
	}

	distFunc, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}

	dists := make([]centroidDist, k)
	for i := 0; i < k; i++ {
		center := centroids[i*dim : (i+1)*dim]
		dists[i] = centroidDist{id: i, dist: distFunc(query, center)}
	}

	sort.Slice(dists, func(i, j int) bool {
		return dists[i].dist < dists[j].dist
	})

	result := make([]int, n)
	for i := 0; i < n; i++ {
		result[i] = dists[i].id
	}

	return result, nil
}
