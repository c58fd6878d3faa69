// Package engine binds one index segment to a storage location.
//
// An Engine starts as a mutable flat index (New), grows through AddWithIDs and
// Merge, is persisted with Serialize, and is converted into its bulk-built
// search representation with BuildIndex. Load resolves a segment through the
// shared cache before falling back to the persistence gateway.
//
// Collaborators (cache, persistence gateway, metrics sink, configuration
// provider, logger) are injected per engine with Options; engines that share a
// cache see each other's published segments.
//
// Every operation returns an *Error whose Kind can be matched with errors.Is
// against the Err* sentinels:
//
//	if errors.Is(err, engine.ErrSelfMergeForbidden) {
//		// ...
//	}
package engine
