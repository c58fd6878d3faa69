package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/vexec/blobstore"
	"github.com/hupe1980/vexec/config"
	"github.com/hupe1980/vexec/index"
	"github.com/hupe1980/vexec/metrics"

	// Register every index type with the factory.
	_ "github.com/hupe1980/vexec/index/flat"
	_ "github.com/hupe1980/vexec/index/ivf"
	_ "github.com/hupe1980/vexec/index/vptree"
)

// Engine owns one index segment bound to a storage location.
//
// An Engine is not safe for concurrent mutation; callers serialize writers.
// Distinct engines are independent apart from the collaborators they share.
type Engine struct {
	idx         index.Index
	location    string
	buildType   index.EngineType
	currentType index.EngineType
	cfg         config.EngineConfig
	opts        options
	log         *slog.Logger
}

func newEngine(location string, buildType index.EngineType, o options) *Engine {
	return &Engine{
		location:  location,
		buildType: buildType,
		cfg:       config.EngineConfig{DeviceID: config.DefaultGPUIndex, NProbe: 1},
		opts:      o,
		log:       o.logger.With("location", location, "build_type", buildType.String()),
	}
}

// New creates an engine holding an empty flat index of dimension dim.
// buildType is the index type BuildIndex produces later.
func New(dim int, location string, buildType index.EngineType, opts ...Option) (*Engine, error) {
	e := newEngine(location, buildType, applyOptions(opts))

	idx, err := index.New(index.FlatIDMap, dim)
	if err != nil {
		e.log.Error("create flat index", "dim", dim, "error", err)
		return nil, newError(classify(err, UnsupportedEngineType), err, "create flat index (dim=%d)", dim)
	}
	e.idx = idx
	e.currentType = index.FlatIDMap
	return e, nil
}

// Wrap creates an engine around an already built index of type typ. It fails
// with InvalidArgument when idx is nil or reports a different type.
func Wrap(idx index.Index, location string, typ index.EngineType, opts ...Option) (*Engine, error) {
	if idx == nil {
		return nil, newError(InvalidArgument, nil, "wrap %s: nil index", location)
	}
	if got := idx.Type(); got != typ {
		return nil, newError(InvalidArgument, nil, "wrap %s: index is %s, not %s", location, got, typ)
	}
	e := newEngine(location, typ, applyOptions(opts))
	e.idx = idx
	e.currentType = typ
	return e, nil
}

// Open creates an engine whose index is loaded from location, through the
// cache, and initializes its tuning.
func Open(ctx context.Context, location string, buildType index.EngineType, opts ...Option) (*Engine, error) {
	e := newEngine(location, buildType, applyOptions(opts))
	if err := e.Init(); err != nil {
		return nil, err
	}
	if err := e.Load(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Location returns the storage location of the segment.
func (e *Engine) Location() string { return e.location }

// BuildType returns the index type BuildIndex produces.
func (e *Engine) BuildType() index.EngineType { return e.buildType }

// CurrentType returns the type of the held index.
func (e *Engine) CurrentType() index.EngineType { return e.currentType }

// Index returns the held index object.
func (e *Engine) Index() index.Index { return e.idx }

// DeviceID returns the accelerator ordinal used for GPU builds.
func (e *Engine) DeviceID() int { return e.cfg.DeviceID }

// NProbe returns the IVF search fan-out.
func (e *Engine) NProbe() int { return e.cfg.NProbe }

// Count returns the number of stored vectors.
func (e *Engine) Count() int { return e.idx.Count() }

// Dimension returns the vector dimension.
func (e *Engine) Dimension() int { return e.idx.Dimension() }

// Size returns the logical size of the index in bytes.
func (e *Engine) Size() int64 { return e.opts.sizeFn(e.idx) }

// PhysicalSize returns the physical size of the index in bytes.
func (e *Engine) PhysicalSize() int64 { return e.opts.physSizeFn(e.idx) }

// Init resolves DeviceID and NProbe from the configuration provider. NProbe
// is read only when the build type is an IVF variant.
func (e *Engine) Init() error {
	cfg, err := config.ResolveEngine(e.opts.provider, e.buildType)
	if err != nil {
		return newError(InvalidArgument, err, "init")
	}
	e.cfg = cfg
	e.log.Debug("engine initialized", "device_id", cfg.DeviceID, "nprobe", cfg.NProbe)
	return nil
}

// AddWithIDs appends n vectors with their ids. The held index must support
// incremental adds.
func (e *Engine) AddWithIDs(n int, vectors []float32, ids []int64) (err error) {
	defer e.observe(metrics.OpAdd, time.Now(), &err)

	if !e.idx.Capabilities().IncrementalAdd {
		return newError(UnsupportedOperation, nil, "%s does not support incremental add", e.currentType)
	}
	dim := e.Dimension()
	if n < 0 || len(vectors) < n*dim || len(ids) < n {
		return newError(InvalidArgument, nil, "add: n=%d needs %d floats and %d ids, got %d and %d",
			n, n*dim, n, len(vectors), len(ids))
	}
	if err := e.idx.Add(n, vectors[:n*dim], ids[:n], index.AddConfig{Dim: dim}); err != nil {
		return newError(classify(err, InvalidArgument), err, "add %d vectors", n)
	}
	return nil
}

// Serialize writes the held index to the engine's location.
func (e *Engine) Serialize(ctx context.Context) (err error) {
	defer e.observe(metrics.OpSerialize, time.Now(), &err)

	if err := e.opts.store.Write(ctx, e.location, e.idx); err != nil {
		e.log.Error("serialize", "error", err)
		return newError(StorageWriteFailure, err, "write %s", e.location)
	}
	e.log.Debug("serialized", "count", e.idx.Count())
	return nil
}

// Load replaces the held index with the one cached or stored under the
// engine's location. Only a load that reads storage reports duration, size
// and throughput to the metrics sink; concurrent loads of one location read
// storage once.
func (e *Engine) Load(ctx context.Context) (err error) {
	defer e.observe(metrics.OpLoad, time.Now(), &err)

	start := time.Now()
	idx, loaded, err := e.opts.cache.GetOrLoad(ctx, e.location, func(ctx context.Context) (index.Index, error) {
		e.log.Debug("disk io", "location", e.location)
		return e.opts.store.Read(ctx, e.location)
	})
	if err != nil {
		return newError(StorageReadFailure, err, "load %s", e.location)
	}

	e.idx = idx
	e.currentType = idx.Type()
	if loaded {
		d := time.Since(start)
		size := e.Size()
		metrics.RecordLoad(e.opts.metrics, d, size)
		e.log.Debug("loaded from storage", "type", e.currentType.String(), "count", idx.Count(),
			"bytes", size, "duration", d)
	}
	return nil
}

// Merge appends every vector of the flat segment at otherLocation to the
// held index. The source is taken from the cache when present and is never
// inserted into it. On any error the held index is unchanged.
func (e *Engine) Merge(ctx context.Context, otherLocation string) (err error) {
	defer e.observe(metrics.OpMerge, time.Now(), &err)

	if otherLocation == e.location {
		return newError(SelfMergeForbidden, nil, "cannot merge %s into itself", e.location)
	}
	e.log.Debug("merge", "from", otherLocation)

	src, ok := e.opts.cache.Get(ctx, otherLocation)
	if !ok {
		var err error
		src, err = e.opts.store.Read(ctx, otherLocation)
		if err != nil {
			return newError(StorageReadFailure, err, "read merge source %s", otherLocation)
		}
	}

	flat, ok := src.AsFlat()
	if !ok {
		return newError(IncompatibleMergeSource, nil, "merge source %s is %s, not flat", otherLocation, src.Type())
	}
	if flat.Dimension() != e.Dimension() {
		return newError(InvalidArgument, &index.ErrDimensionMismatch{Expected: e.Dimension(), Actual: flat.Dimension()},
			"merge source %s", otherLocation)
	}
	if !e.idx.Capabilities().IncrementalAdd {
		return newError(UnsupportedOperation, nil, "%s does not support incremental add", e.currentType)
	}

	if target, ok := e.idx.AsFlat(); ok {
		if overlap := roaring64.And(target.IDs(), flat.IDs()).GetCardinality(); overlap > 0 {
			e.log.Warn("merge introduces duplicate ids", "from", otherLocation, "overlap", overlap)
		}
	}

	if err := e.idx.Add(flat.Count(), flat.RawVectors(), flat.RawIDs(), index.AddConfig{Dim: e.Dimension()}); err != nil {
		return newError(classify(err, InvalidArgument), err, "merge %s", otherLocation)
	}
	return nil
}

// BuildIndex bulk-builds an index of the engine's build type from the held
// flat index and returns a new engine for it at targetLocation. The new
// engine shares this engine's collaborators and tuning; this engine is left
// unchanged.
func (e *Engine) BuildIndex(ctx context.Context, targetLocation string) (_ *Engine, err error) {
	defer e.observe(metrics.OpBuild, time.Now(), &err)

	flat, ok := e.idx.AsFlat()
	if !ok {
		return nil, newError(BuildRequiresFlatSource, nil, "current index is %s", e.currentType)
	}
	e.log.Debug("build index", "target", targetLocation, "count", flat.Count())

	if err := e.opts.rc.AcquireBackground(ctx); err != nil {
		return nil, newError(BuildFailure, err, "wait for build slot")
	}
	defer e.opts.rc.ReleaseBackground()

	to, err := index.New(e.buildType, e.Dimension())
	if err != nil {
		e.log.Error("create index", "type", e.buildType.String(), "error", err)
		return nil, newError(UnsupportedEngineType, err, "create %s", e.buildType)
	}

	cfg := e.opts.build
	cfg.Dim = e.Dimension()
	cfg.DeviceID = e.cfg.DeviceID
	if err := to.Build(flat.Count(), flat.RawVectors(), flat.RawIDs(), cfg); err != nil {
		return nil, newError(classify(err, BuildFailure), err, "build %s", e.buildType)
	}

	built := newEngine(targetLocation, e.buildType, e.opts)
	built.idx = to
	built.currentType = to.Type()
	built.cfg = e.cfg
	return built, nil
}

// Search finds the k nearest neighbors of n queries. distances and labels
// must hold n*k entries; unused slots are filled with +Inf and -1.
func (e *Engine) Search(n int, queries []float32, k int, distances []float32, labels []int64) (err error) {
	defer e.observe(metrics.OpSearch, time.Now(), &err)

	if k <= 0 {
		return newError(InvalidArgument, index.ErrInvalidK, "k=%d", k)
	}
	dim := e.Dimension()
	if n < 0 || len(queries) < n*dim || len(distances) < n*k || len(labels) < n*k {
		return newError(InvalidArgument, index.ErrShortBuffer,
			"search: n=%d k=%d needs %d query floats and %d result slots", n, k, n*dim, n*k)
	}

	cfg := index.SearchConfig{K: k, NProbe: e.cfg.NProbe}
	if err := e.idx.Search(n, queries, k, distances, labels, cfg); err != nil {
		return newError(classify(err, SearchFailure), err, "search %s", e.currentType)
	}
	return nil
}

// Cache inserts the held index into the cache under the engine's location,
// replacing any previous entry. The cache then shares the index object:
// after further AddWithIDs calls, call Cache again to publish them.
func (e *Engine) Cache(ctx context.Context) {
	e.opts.cache.Insert(ctx, e.location, e.idx)
}

func (e *Engine) observe(op string, start time.Time, err *error) {
	metrics.ObserveOperation(e.opts.metrics, op, start, *err)
}

// IsNotFound reports whether err was caused by a missing segment.
func IsNotFound(err error) bool {
	return errors.Is(err, blobstore.ErrNotFound)
}
