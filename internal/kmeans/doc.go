// Package kmeans implements k-means clustering for coarse quantizer training.
//
// Used internally by the IVF indexes to learn the centroids that partition
// vectors into inverted lists.
package kmeans
