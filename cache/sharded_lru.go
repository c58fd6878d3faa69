package cache

import (
	"context"
	"hash/maphash"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/vexec/index"
	"github.com/hupe1980/vexec/internal/resource"
)

const numShards = 64

// Compile time check to ensure ShardedLRU satisfies the IndexCache interface.
var _ IndexCache = (*ShardedLRU)(nil)

// ShardedLRU is a sharded LRU cache for high-concurrency workloads.
// It distributes entries across 64 shards to reduce lock contention on Get.
//
// The capacity is a single budget for the whole cache: any index that fits
// the capacity can be cached, and inserts evict the least recently used
// entry across all shards.
type ShardedLRU struct {
	shards   [numShards]*LRU
	seed     maphash.Seed
	capacity int64
	sizeOf   SizeFunc

	// mu serializes budgeted inserts with their global evictions.
	mu sync.Mutex
}

// NewShardedLRU creates a new sharded LRU cache with a total capacity in
// bytes; capacity <= 0 means unbounded.
func NewShardedLRU(capacity int64, rc *resource.Controller, optFns ...Option) *ShardedLRU {
	s := &ShardedLRU{
		seed:     maphash.MakeSeed(),
		capacity: capacity,
		sizeOf:   applyOptions(optFns).sizeFunc,
	}

	clock := new(atomic.Uint64)
	for i := range numShards {
		sh := NewLRU(capacity, rc, optFns...)
		sh.clock = clock
		sh.store = s.Insert
		s.shards[i] = sh
	}

	return s
}

func (s *ShardedLRU) shard(key string) *LRU {
	return s.shards[maphash.String(s.seed, key)%numShards]
}

// Get returns a cached index.
func (s *ShardedLRU) Get(ctx context.Context, key string) (index.Index, bool) {
	return s.shard(key).Get(ctx, key)
}

// Insert caches an index, evicting least recently used entries from any
// shard until the total fits the capacity.
func (s *ShardedLRU) Insert(ctx context.Context, key string, idx index.Index) {
	sh := s.shard(key)
	if s.capacity <= 0 {
		sh.Insert(ctx, key, idx)
		return
	}

	itemSize := s.sizeOf(idx)

	s.mu.Lock()
	defer s.mu.Unlock()

	sh.Invalidate(key)
	for itemSize <= s.capacity && s.Size()+itemSize > s.capacity {
		if !s.evictOldest() {
			break
		}
	}
	sh.Insert(ctx, key, idx)
}

// evictOldest drops the globally least recently used entry.
func (s *ShardedLRU) evictOldest() bool {
	var (
		victim *LRU
		oldest uint64
	)
	for _, sh := range s.shards {
		if used, ok := sh.oldest(); ok && (victim == nil || used < oldest) {
			victim, oldest = sh, used
		}
	}
	if victim == nil {
		return false
	}
	return victim.evict()
}

// GetOrLoad returns the cached index or materializes it once.
func (s *ShardedLRU) GetOrLoad(ctx context.Context, key string, load Loader) (index.Index, bool, error) {
	return s.shard(key).GetOrLoad(ctx, key, load)
}

// Invalidate removes the entry for key.
func (s *ShardedLRU) Invalidate(key string) {
	s.shard(key).Invalidate(key)
}

// Stats returns counters aggregated over all shards.
func (s *ShardedLRU) Stats() Stats {
	var total Stats
	for i := range numShards {
		total.add(s.shards[i].Stats())
	}
	return total
}

// Len returns the number of cached entries across all shards.
func (s *ShardedLRU) Len() int {
	n := 0
	for i := range numShards {
		n += s.shards[i].Len()
	}
	return n
}

// Size returns the total size across all shards.
func (s *ShardedLRU) Size() int64 {
	var total int64
	for i := range numShards {
		total += s.shards[i].Size()
	}
	return total
}
