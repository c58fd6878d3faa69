// Package cache keeps materialized indexes resident in memory, keyed by
// segment location.
//
// Two implementations are provided:
//
//   - LRU: a single size-bounded LRU list
//   - ShardedLRU: 64 independent LRUs for high-concurrency workloads
//
// Both charge resident bytes against an optional resource.Controller and
// collapse concurrent loads of one key into a single materialization:
//
//	c := cache.NewLRU(1<<30, rc)
//	idx, loaded, err := c.GetOrLoad(ctx, "segments/42", func(ctx context.Context) (index.Index, error) {
//	    return gateway.Read(ctx, "segments/42")
//	})
//
// Cached indexes are shared with their callers. Mutating an index after it
// was inserted leaves the accounted size stale until it is inserted again.
package cache
