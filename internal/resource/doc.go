// Package resource implements process-wide limits shared by every engine.
//
// The Controller governs three resources:
//
//   - Memory: bytes of index data resident in the cache (non-blocking, fail-fast)
//   - Build slots: concurrent bulk index builds
//   - IO: segment read/write bandwidth (token bucket)
//
// # Memory
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30,
//	})
//
//	if !rc.TryAcquireMemory(size) {
//	    // over budget; caller decides whether to evict or skip
//	}
//	defer rc.ReleaseMemory(size)
//
// # Build Slots
//
//	if err := rc.AcquireBackground(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseBackground()
//
// # IO Rate Limiting
//
//	if err := rc.AcquireIO(ctx, len(segment)); err != nil {
//	    return err
//	}
//	r := resource.NewRateLimitedReader(ctx, blob, rc)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
// This allows optional resource limiting without nil checks everywhere.
package resource
