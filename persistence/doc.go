// Package persistence implements the segment codec and the Persistence
// Gateway that stores index objects in a blobstore.
//
// A segment is a 64-byte header followed by the index's MarshalBinary body,
// optionally compressed with LZ4 or ZSTD. Compression is dropped when it saves
// less than 10%. The header carries the engine type, dimension, vector count,
// both body lengths and a CRC32C of the stored body; Decode validates all of
// them before handing the body to the index factory.
//
// BinaryIndexWriter and BinaryIndexReader are the little-endian primitives
// index implementations use for their bodies. On little-endian hosts slices are
// written and read without per-element conversion.
//
// Reads may be throttled through an internal/resource.Controller.
package persistence
