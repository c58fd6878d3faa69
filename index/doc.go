// Package index defines the capability set shared by every vector index
// representation and the factory that constructs them by engine type.
//
// Four engine types are provided by subpackages:
//
//   - FlatIDMap (package flat): raw vectors plus int64 ids, exact search, incremental adds
//   - IVFFlatCPU (package ivf): k-means coarse quantizer with inverted lists
//   - IVFFlatGPU (package ivf): IVFFlat built on the accelerator lanes, searched host-side
//   - TreeBasedCPU (package vptree): vantage-point tree, exact search
//
// Implementations register themselves from init(). Import the subpackages
// (blank imports are enough) before calling New:
//
//	import (
//	    _ "github.com/hupe1980/vexec/index/flat"
//	    _ "github.com/hupe1980/vexec/index/ivf"
//	)
//
//	idx, err := index.New(index.FlatIDMap, 128)
//
// # Capabilities
//
// Callers never type-assert on concrete index types. Use Capabilities to ask
// what an index supports and AsFlat to reach the raw vectors and ids:
//
//	if flat, ok := idx.AsFlat(); ok {
//	    vectors, ids := flat.RawVectors(), flat.RawIDs()
//	}
//
// All index types report squared L2 distances. Unfilled result slots carry
// label -1 and distance +Inf.
package index
