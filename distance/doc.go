// Package distance provides the vector distance kernels shared by every index
// type.
//
// # Supported Metrics
//
//   - MetricL2: Squared Euclidean distance (default, used by all index types)
//   - MetricCosine: Cosine similarity (normalized dot product)
//   - MetricDot: Dot product (inner product)
//
// # Usage
//
//	dist := distance.SquaredL2(a, b)
//	sim := distance.Dot(a, b)
//	ok := distance.NormalizeL2InPlace(vec)
package distance
