package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/vexec/index"
	"github.com/hupe1980/vexec/internal/resource"
)

// Compile time check to ensure LRU satisfies the IndexCache interface.
var _ IndexCache = (*LRU)(nil)

// LRU implements a size-bounded LRU IndexCache.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[string]*list.Element
	evictList *list.List
	rc        *resource.Controller
	sizeOf    SizeFunc
	flight    singleflight.Group

	// clock stamps entries on use; shards of a ShardedLRU share one.
	clock *atomic.Uint64
	// store receives loaded indexes; nil means Insert.
	store func(context.Context, string, index.Index)

	hits      atomic.Int64
	misses    atomic.Int64
	loads     atomic.Int64
	evictions atomic.Int64
	rejected  atomic.Int64
}

type entry struct {
	key   string
	value index.Index
	size  int64
	used  uint64
}

// NewLRU creates a new LRU cache with the given capacity in bytes.
// A capacity <= 0 means unbounded. If rc is provided, resident bytes are
// charged against its memory budget.
func NewLRU(capacity int64, rc *resource.Controller, optFns ...Option) *LRU {
	o := applyOptions(optFns)
	return &LRU{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		rc:        rc,
		sizeOf:    o.sizeFunc,
		clock:     new(atomic.Uint64),
	}
}

// Get returns a cached index.
func (c *LRU) Get(_ context.Context, key string) (index.Index, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		e := ent.Value.(*entry)
		e.used = c.clock.Add(1)
		return e.value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Insert caches an index, replacing any previous entry for key.
func (c *LRU) Insert(_ context.Context, key string, idx index.Index) {
	itemSize := c.sizeOf(idx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.removeElement(ent, false)
	}

	if c.capacity > 0 && itemSize > c.capacity {
		c.rejected.Add(1)
		return
	}

	for c.capacity > 0 && c.size+itemSize > c.capacity {
		if !c.evictOldest() {
			break
		}
	}

	// The memory budget is shared with other caches; evict locally until
	// the controller grants the bytes or nothing is left to give back.
	for !c.rc.TryAcquireMemory(itemSize) {
		if !c.evictOldest() {
			c.rejected.Add(1)
			return
		}
	}

	element := c.evictList.PushFront(&entry{key: key, value: idx, size: itemSize, used: c.clock.Add(1)})
	c.items[key] = element
	c.size += itemSize
}

// GetOrLoad returns the cached index or materializes it once.
func (c *LRU) GetOrLoad(ctx context.Context, key string, load Loader) (index.Index, bool, error) {
	if idx, ok := c.Get(ctx, key); ok {
		return idx, false, nil
	}

	materialized := false
	v, err, _ := c.flight.Do(key, func() (any, error) {
		// A flight for key may have completed between Get and Do.
		if idx, ok := c.peek(key); ok {
			return idx, nil
		}
		materialized = true
		idx, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.loads.Add(1)
		if c.store != nil {
			c.store(ctx, key, idx)
		} else {
			c.Insert(ctx, key, idx)
		}
		return idx, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(index.Index), materialized, nil
}

func (c *LRU) peek(key string) (index.Index, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, ok := c.items[key]; ok {
		return ent.Value.(*entry).value, true
	}
	return nil, false
}

// Invalidate removes the entry for key.
func (c *LRU) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.removeElement(ent, false)
	}
}

// Stats returns cache counters.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	size, entries := c.size, len(c.items)
	c.mu.Unlock()

	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Loads:     c.loads.Load(),
		Evictions: c.evictions.Load(),
		Rejected:  c.rejected.Load(),
		Bytes:     size,
		Entries:   entries,
	}
}

// Len returns the number of cached entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Size returns the current size of the cache in bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// oldest returns the use stamp of the least recently used entry.
func (c *LRU) oldest() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ent := c.evictList.Back()
	if ent == nil {
		return 0, false
	}
	return ent.Value.(*entry).used, true
}

func (c *LRU) evict() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictOldest()
}

func (c *LRU) evictOldest() bool {
	ent := c.evictList.Back()
	if ent == nil {
		return false
	}
	c.removeElement(ent, true)
	return true
}

func (c *LRU) removeElement(e *list.Element, evicted bool) {
	c.evictList.Remove(e)
	kv := e.Value.(*entry)
	delete(c.items, kv.key)
	c.size -= kv.size
	c.rc.ReleaseMemory(kv.size)
	if evicted {
		c.evictions.Add(1)
	}
}
