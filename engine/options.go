package engine

import (
	"log/slog"

	"github.com/hupe1980/vexec/cache"
	"github.com/hupe1980/vexec/config"
	"github.com/hupe1980/vexec/index"
	"github.com/hupe1980/vexec/internal/resource"
	"github.com/hupe1980/vexec/metrics"
	"github.com/hupe1980/vexec/persistence"
)

// SizeFunc reports a byte size for an index.
type SizeFunc func(idx index.Index) int64

// options holds the collaborators an engine shares with the engines it builds.
type options struct {
	cache      cache.IndexCache
	store      persistence.Gateway
	metrics    metrics.Sink
	provider   config.Provider
	logger     *slog.Logger
	sizeFn     SizeFunc
	physSizeFn SizeFunc
	rc         *resource.Controller
	build      index.BuildConfig
}

// Option configures an Engine.
type Option func(*options)

// WithCache sets the index cache. Engines that should see each other's
// loaded segments must share one cache.
func WithCache(c cache.IndexCache) Option {
	return func(o *options) { o.cache = c }
}

// WithStore sets the persistence gateway.
func WithStore(g persistence.Gateway) Option {
	return func(o *options) { o.store = g }
}

// WithMetrics sets the metrics sink.
func WithMetrics(s metrics.Sink) Option {
	return func(o *options) { o.metrics = s }
}

// WithConfig sets the configuration provider consulted by Init.
func WithConfig(p config.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSizeFunc overrides Size. The default is Count*Dimension*4.
func WithSizeFunc(fn SizeFunc) Option {
	return func(o *options) { o.sizeFn = fn }
}

// WithPhysicalSizeFunc overrides PhysicalSize. The default is Count*Dimension*4.
func WithPhysicalSizeFunc(fn SizeFunc) Option {
	return func(o *options) { o.physSizeFn = fn }
}

// WithResources bounds concurrent BuildIndex calls by the controller's
// background worker slots.
func WithResources(rc *resource.Controller) Option {
	return func(o *options) { o.rc = rc }
}

// WithBuildConfig sets the bulk-build tuning (NList, MaxIter, Seed) used by
// BuildIndex. Dim and DeviceID are always taken from the engine.
func WithBuildConfig(cfg index.BuildConfig) Option {
	return func(o *options) { o.build = cfg }
}

func applyOptions(optFns []Option) options {
	o := options{}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.cache == nil {
		o.cache = cache.NewLRU(0, o.rc)
	}
	if o.store == nil {
		o.store = persistence.NewMemoryGateway(persistence.WithResourceController(o.rc))
	}
	if o.metrics == nil {
		o.metrics = metrics.Noop{}
	}
	if o.provider == nil {
		o.provider = &config.Static{}
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.sizeFn == nil {
		o.sizeFn = cache.RawSize
	}
	if o.physSizeFn == nil {
		o.physSizeFn = cache.RawSize
	}
	return o
}
