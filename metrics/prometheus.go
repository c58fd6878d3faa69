package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus exports observations as Prometheus collectors.
type Prometheus struct {
	loadDuration   prometheus.Histogram
	loadSize       prometheus.Histogram
	loadThroughput prometheus.Gauge
	opLatency      *prometheus.HistogramVec
	opErrors       *prometheus.CounterVec
}

var (
	_ Sink              = (*Prometheus)(nil)
	_ OperationObserver = (*Prometheus)(nil)
)

// NewPrometheus creates the collectors under namespace and registers them with
// reg. A collector that is already registered is reused.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	p := &Prometheus{
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time to read and decode one index segment.",
			Buckets:   prometheus.DefBuckets,
		}),
		loadSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_size_bytes",
			Help:      "In-memory size of loaded index segments.",
			Buckets:   prometheus.ExponentialBuckets(1<<10, 4, 12),
		}),
		loadThroughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "load_throughput_bytes_per_second",
			Help:      "Throughput of the most recent segment load.",
		}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of engine operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		opErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Failed engine operations.",
		}, []string{"op"}),
	}

	var err error
	if p.loadDuration, err = register(reg, p.loadDuration); err != nil {
		return nil, err
	}
	if p.loadSize, err = register(reg, p.loadSize); err != nil {
		return nil, err
	}
	if p.loadThroughput, err = register(reg, p.loadThroughput); err != nil {
		return nil, err
	}
	if p.opLatency, err = register(reg, p.opLatency); err != nil {
		return nil, err
	}
	if p.opErrors, err = register(reg, p.opErrors); err != nil {
		return nil, err
	}
	return p, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveLoadDuration implements Sink.
func (p *Prometheus) ObserveLoadDuration(seconds float64) { p.loadDuration.Observe(seconds) }

// ObserveLoadSizeBytes implements Sink.
func (p *Prometheus) ObserveLoadSizeBytes(bytes float64) { p.loadSize.Observe(bytes) }

// SetLoadThroughput implements Sink.
func (p *Prometheus) SetLoadThroughput(bytesPerSecond float64) {
	p.loadThroughput.Set(bytesPerSecond)
}

// ObserveOperation implements OperationObserver.
func (p *Prometheus) ObserveOperation(op string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		p.opErrors.WithLabelValues(op).Inc()
	}
	p.opLatency.WithLabelValues(op, status).Observe(d.Seconds())
}

// RegisterMemoryGauges exports resident index memory and its budget, sampled
// from used and limit at scrape time.
func RegisterMemoryGauges(reg prometheus.Registerer, namespace string, used, limit func() int64) error {
	if _, err := register(reg, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "memory_used_bytes",
		Help:      "Bytes of index memory charged to the resource controller.",
	}, func() float64 { return float64(used()) })); err != nil {
		return err
	}
	_, err := register(reg, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "memory_limit_bytes",
		Help:      "Configured index memory budget; 0 means unlimited.",
	}, func() float64 { return float64(limit()) }))
	return err
}
