package ivf

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vexec/distance"
	"github.com/hupe1980/vexec/internal/kmeans"
)

// assignLists maps every vector to its nearest centroid.
//
// With workers > 1 the rows are split across that many lanes. This is the
// accelerator path used by IVFFlatGPU builds; the resulting lists are
// identical to a single-lane assignment.
func assignLists(data []float32, dim int, centroids []float32, workers int) ([]int, error) {
	n := len(data) / dim
	out := make([]int, n)
	if n == 0 {
		return out, nil
	}
	workers = max(1, min(workers, n))
	chunk := (n + workers - 1) / workers

	g, _ := errgroup.WithContext(context.Background())
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				list, err := kmeans.AssignPartition(data[i*dim:(i+1)*dim], centroids, dim, distance.MetricL2)
				if err != nil {
					return err
				}
				out[i] = list
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
