// Package blobstore provides the storage abstraction behind segment
// persistence.
//
// A BlobStore holds immutable, whole-object blobs addressed by name. Segments
// are written with a single atomic Put and read back through Open, which
// returns a random-access Blob.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, mmap reads, temp-file+rename writes
//   - MemoryStore: in-process map, for tests and ephemeral engines
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible object stores
//
// Missing blobs are reported with an error matching ErrNotFound.
package blobstore
