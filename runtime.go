package vexec

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/vexec/blobstore"
	miniostore "github.com/hupe1980/vexec/blobstore/minio"
	s3store "github.com/hupe1980/vexec/blobstore/s3"
	"github.com/hupe1980/vexec/cache"
	"github.com/hupe1980/vexec/config"
	"github.com/hupe1980/vexec/engine"
	"github.com/hupe1980/vexec/index"
	"github.com/hupe1980/vexec/internal/resource"
	"github.com/hupe1980/vexec/metrics"
	"github.com/hupe1980/vexec/persistence"
)

// ErrMetricsDisabled is returned by MetricsHandler when metrics.enabled is false.
var ErrMetricsDisabled = errors.New("vexec: metrics are disabled")

// Runtime owns the collaborators shared by every engine of a process: blob
// store, persistence gateway, index cache, resource controller, metrics sink
// and logger.
type Runtime struct {
	cfg      *config.File
	store    blobstore.BlobStore
	gateway  *persistence.BlobGateway
	cache    cache.IndexCache
	rc       *resource.Controller
	sink     metrics.Sink
	registry *prometheus.Registry
	logger   *Logger
}

type runtimeOptions struct {
	store    blobstore.BlobStore
	logger   *Logger
	sink     metrics.Sink
	registry *prometheus.Registry
}

// RuntimeOption configures NewRuntime.
type RuntimeOption func(*runtimeOptions)

// WithBlobStore uses store instead of the backend named in storage.backend.
func WithBlobStore(store blobstore.BlobStore) RuntimeOption {
	return func(o *runtimeOptions) { o.store = store }
}

// WithLogger uses logger instead of one built from the logging section.
func WithLogger(logger *Logger) RuntimeOption {
	return func(o *runtimeOptions) { o.logger = logger }
}

// WithMetricsSink uses sink instead of the Prometheus sink.
func WithMetricsSink(sink metrics.Sink) RuntimeOption {
	return func(o *runtimeOptions) { o.sink = sink }
}

// WithRegistry registers Prometheus collectors with reg instead of a fresh
// registry.
func WithRegistry(reg *prometheus.Registry) RuntimeOption {
	return func(o *runtimeOptions) { o.registry = reg }
}

// NewRuntime assembles a Runtime from cfg. A nil cfg uses config.DefaultFile.
func NewRuntime(ctx context.Context, cfg *config.File, optFns ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		cfg = config.DefaultFile()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o runtimeOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	r := &Runtime{cfg: cfg, logger: o.logger}
	if r.logger == nil {
		l, err := NewLoggerFromConfig(cfg.Logging, os.Stderr)
		if err != nil {
			return nil, err
		}
		r.logger = l
	}

	r.rc = resource.NewController(resource.Config{
		MemoryLimitBytes:     cfg.Resource.MemoryLimitBytes,
		IOLimitBytesPerSec:   int64(cfg.Resource.IOLimitBytesPerSec),
		MaxBackgroundWorkers: int64(cfg.Resource.MaxBackgroundWorkers),
	})

	r.store = o.store
	if r.store == nil {
		store, err := OpenBlobStore(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		r.store = store
	}

	compression, err := persistence.ParseCompression(cfg.Storage.Compression)
	if err != nil {
		return nil, err
	}
	r.gateway = persistence.NewGateway(r.store,
		persistence.WithCompression(compression),
		persistence.WithResourceController(r.rc),
	)

	if cfg.Cache.Sharded {
		r.cache = cache.NewShardedLRU(cfg.Cache.CapacityBytes, r.rc)
	} else {
		r.cache = cache.NewLRU(cfg.Cache.CapacityBytes, r.rc)
	}

	switch {
	case o.sink != nil:
		r.sink = o.sink
	case cfg.Metrics.Enabled:
		r.registry = o.registry
		if r.registry == nil {
			r.registry = prometheus.NewRegistry()
			r.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		}
		sink, err := metrics.NewPrometheus(r.registry, cfg.Metrics.Namespace)
		if err != nil {
			return nil, fmt.Errorf("vexec: metrics: %w", err)
		}
		if err := metrics.RegisterMemoryGauges(r.registry, cfg.Metrics.Namespace, r.rc.MemoryUsage, r.rc.MemoryLimit); err != nil {
			return nil, fmt.Errorf("vexec: metrics: %w", err)
		}
		r.sink = sink
	default:
		r.sink = metrics.Noop{}
	}

	r.logger.Debug("runtime ready",
		"backend", cfg.Storage.Backend,
		"compression", compression.String(),
		"cache_capacity", cfg.Cache.CapacityBytes,
		"memory_limit", r.rc.MemoryLimit(),
		"metrics", cfg.Metrics.Enabled,
	)
	return r, nil
}

// OpenBlobStore connects the backend named by c.Backend.
func OpenBlobStore(ctx context.Context, c config.StorageConfig) (blobstore.BlobStore, error) {
	switch c.Backend {
	case "", "local":
		return blobstore.NewLocalStore(c.Path), nil
	case "memory":
		return blobstore.NewMemoryStore(), nil
	case "s3":
		opts := []s3store.Option{s3store.WithPrefix(c.Prefix)}
		if c.Region != "" {
			opts = append(opts, s3store.WithRegion(c.Region))
		}
		if c.Endpoint != "" {
			opts = append(opts, s3store.WithEndpoint(c.Endpoint))
		}
		opts = append(opts, s3store.WithUploadConfig(func(u *s3store.UploadConfig) {
			if c.UploadPartSize > 0 {
				u.PartSize = c.UploadPartSize
			}
			if c.UploadConcurrency > 0 {
				u.Concurrency = c.UploadConcurrency
			}
		}))
		return s3store.New(ctx, c.Bucket, opts...)
	case "minio":
		store, err := miniostore.Connect(c.Endpoint, c.AccessKey, c.SecretKey, c.UseSSL, c.Bucket, c.Prefix)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, c.Backend)
	}
}

// Config returns the process configuration.
func (r *Runtime) Config() *config.File { return r.cfg }

// Store returns the blob store.
func (r *Runtime) Store() blobstore.BlobStore { return r.store }

// Gateway returns the persistence gateway.
func (r *Runtime) Gateway() *persistence.BlobGateway { return r.gateway }

// Cache returns the shared index cache.
func (r *Runtime) Cache() cache.IndexCache { return r.cache }

// Resources returns the resource controller.
func (r *Runtime) Resources() *resource.Controller { return r.rc }

// Metrics returns the metrics sink.
func (r *Runtime) Metrics() metrics.Sink { return r.sink }

// Logger returns the process logger.
func (r *Runtime) Logger() *Logger { return r.logger }

// EngineOptions returns the options wiring an engine to the runtime's
// collaborators, followed by extra.
func (r *Runtime) EngineOptions(extra ...engine.Option) []engine.Option {
	return append([]engine.Option{
		engine.WithCache(r.cache),
		engine.WithStore(r.gateway),
		engine.WithMetrics(r.sink),
		engine.WithConfig(r.cfg.Provider()),
		engine.WithLogger(r.logger.Logger),
		engine.WithResources(r.rc),
	}, extra...)
}

// NewEngine creates an empty flat engine at location and initializes it.
func (r *Runtime) NewEngine(dim int, location string, buildType index.EngineType, extra ...engine.Option) (*engine.Engine, error) {
	e, err := engine.New(dim, location, buildType, r.EngineOptions(extra...)...)
	if err != nil {
		return nil, err
	}
	if err := e.Init(); err != nil {
		return nil, err
	}
	return e, nil
}

// OpenEngine loads the segment at location.
func (r *Runtime) OpenEngine(ctx context.Context, location string, buildType index.EngineType, extra ...engine.Option) (*engine.Engine, error) {
	start := time.Now()
	e, err := engine.Open(ctx, location, buildType, r.EngineOptions(extra...)...)
	if err != nil {
		r.logger.LogLoad(ctx, location, 0, time.Since(start), err)
		return nil, err
	}
	r.logger.LogLoad(ctx, location, e.Count(), time.Since(start), nil)
	return e, nil
}

// Merge loads the segment at target, appends the flat segment at source and
// writes the result back to target.
func (r *Runtime) Merge(ctx context.Context, target, source string) (*engine.Engine, error) {
	e, err := r.OpenEngine(ctx, target, index.FlatIDMap)
	if err != nil {
		return nil, err
	}
	if err := e.Merge(ctx, source); err != nil {
		r.logger.LogMerge(ctx, target, source, 0, err)
		return nil, err
	}
	if err := e.Serialize(ctx); err != nil {
		r.logger.LogMerge(ctx, target, source, 0, err)
		return nil, err
	}
	// The cached entry is the mutated object; republish it under target.
	e.Cache(ctx)
	r.logger.LogMerge(ctx, target, source, e.Count(), nil)
	return e, nil
}

// Build loads the flat segment at source, builds a buildType index from it
// and writes the result to target.
func (r *Runtime) Build(ctx context.Context, source, target string, buildType index.EngineType, extra ...engine.Option) (*engine.Engine, error) {
	start := time.Now()
	e, err := r.OpenEngine(ctx, source, buildType, extra...)
	if err != nil {
		return nil, err
	}
	built, err := e.BuildIndex(ctx, target)
	if err != nil {
		r.logger.LogBuild(ctx, source, target, buildType, time.Since(start), err)
		return nil, err
	}
	if err := built.Serialize(ctx); err != nil {
		r.logger.LogBuild(ctx, source, target, buildType, time.Since(start), err)
		return nil, err
	}
	r.logger.LogBuild(ctx, source, target, buildType, time.Since(start), nil)
	return built, nil
}

// Stat returns the header of the segment at location and its stored size.
func (r *Runtime) Stat(ctx context.Context, location string) (persistence.Header, int64, error) {
	return r.gateway.Stat(ctx, location)
}

// List returns the stored segment locations under prefix.
func (r *Runtime) List(ctx context.Context, prefix string) ([]string, error) {
	return r.store.List(ctx, prefix)
}

// MetricsHandler serves the Prometheus registry.
func (r *Runtime) MetricsHandler() (http.Handler, error) {
	if r.registry == nil {
		return nil, ErrMetricsDisabled
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}), nil
}
