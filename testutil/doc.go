// Package testutil provides testing utilities for vexec.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random vectors, computing exact
// nearest neighbors, and verifying search recall.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	data := rng.FlatVectors(1000, 128)          // row-major, uniform [0, 1)
//	ids := testutil.SequentialIDs(1000, 0)
//
// # Exact Search (Ground Truth)
//
//	truth := testutil.BruteForceSearch(data, ids, 128, query, k)
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(truth, testutil.Results(labels, dists))
package testutil
