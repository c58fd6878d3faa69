package cache

import (
	"context"

	"github.com/hupe1980/vexec/index"
)

// Loader materializes an index on a cache miss.
type Loader func(ctx context.Context) (index.Index, error)

// SizeFunc reports the number of bytes an index accounts for.
type SizeFunc func(idx index.Index) int64

// RawSize is the default SizeFunc: Count * Dimension * 4.
func RawSize(idx index.Index) int64 {
	return int64(idx.Count()) * int64(idx.Dimension()) * 4
}

// IndexCache is the hot tier in front of persistent segments.
// Implementations must be safe for concurrent use.
type IndexCache interface {
	// Get returns the cached index for key.
	Get(ctx context.Context, key string) (index.Index, bool)

	// Insert caches idx under key, replacing any previous entry.
	Insert(ctx context.Context, key string, idx index.Index)

	// GetOrLoad returns the cached index or runs load exactly once across
	// concurrent callers of the same key. loaded is true only for the caller
	// whose load materialized the index.
	GetOrLoad(ctx context.Context, key string, load Loader) (idx index.Index, loaded bool, err error)

	// Invalidate drops the entry for key.
	Invalidate(key string)

	// Stats returns counters since creation.
	Stats() Stats

	// Len returns the number of cached entries.
	Len() int
}

// Stats holds cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Loads     int64
	Evictions int64
	// Rejected counts inserts skipped because they exceed capacity or the
	// memory budget.
	Rejected int64
	Bytes    int64
	Entries  int
}

func (s *Stats) add(o Stats) {
	s.Hits += o.Hits
	s.Misses += o.Misses
	s.Loads += o.Loads
	s.Evictions += o.Evictions
	s.Rejected += o.Rejected
	s.Bytes += o.Bytes
	s.Entries += o.Entries
}

type options struct {
	sizeFunc SizeFunc
}

// Option configures a cache.
type Option func(*options)

// WithSizeFunc overrides how entry sizes are computed.
func WithSizeFunc(fn SizeFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.sizeFunc = fn
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{sizeFunc: RawSize}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
