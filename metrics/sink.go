package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Sink receives segment load measurements.
type Sink interface {
	// ObserveLoadDuration records how long one load took, in seconds.
	ObserveLoadDuration(seconds float64)
	// ObserveLoadSizeBytes records the size of the loaded index.
	ObserveLoadSizeBytes(bytes float64)
	// SetLoadThroughput records the throughput of the most recent load.
	SetLoadThroughput(bytesPerSecond float64)
}

// OperationObserver is an optional Sink extension receiving per-operation
// timings. op is one of the Op* constants.
type OperationObserver interface {
	ObserveOperation(op string, d time.Duration, err error)
}

// Engine operation names passed to OperationObserver.
const (
	OpAdd       = "add"
	OpSearch    = "search"
	OpSerialize = "serialize"
	OpLoad      = "load"
	OpMerge     = "merge"
	OpBuild     = "build"
)

// Noop discards all observations.
type Noop struct{}

var (
	_ Sink              = Noop{}
	_ OperationObserver = Noop{}
)

func (Noop) ObserveLoadDuration(float64)                   {}
func (Noop) ObserveLoadSizeBytes(float64)                  {}
func (Noop) SetLoadThroughput(float64)                     {}
func (Noop) ObserveOperation(string, time.Duration, error) {}

// Basic keeps observations in memory. It is useful for tests and debugging
// without a monitoring backend.
type Basic struct {
	loads        atomic.Int64
	mu           sync.Mutex
	durations    []float64
	sizes        []float64
	throughput   float64
	opCount      map[string]int64
	opErrors     map[string]int64
	opTotalNanos map[string]int64
}

var (
	_ Sink              = (*Basic)(nil)
	_ OperationObserver = (*Basic)(nil)
)

// NewBasic returns an empty Basic sink.
func NewBasic() *Basic {
	return &Basic{
		opCount:      make(map[string]int64),
		opErrors:     make(map[string]int64),
		opTotalNanos: make(map[string]int64),
	}
}

// ObserveLoadDuration implements Sink.
func (b *Basic) ObserveLoadDuration(seconds float64) {
	b.loads.Add(1)
	b.mu.Lock()
	b.durations = append(b.durations, seconds)
	b.mu.Unlock()
}

// ObserveLoadSizeBytes implements Sink.
func (b *Basic) ObserveLoadSizeBytes(bytes float64) {
	b.mu.Lock()
	b.sizes = append(b.sizes, bytes)
	b.mu.Unlock()
}

// SetLoadThroughput implements Sink.
func (b *Basic) SetLoadThroughput(bytesPerSecond float64) {
	b.mu.Lock()
	b.throughput = bytesPerSecond
	b.mu.Unlock()
}

// ObserveOperation implements OperationObserver.
func (b *Basic) ObserveOperation(op string, d time.Duration, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opCount[op]++
	b.opTotalNanos[op] += d.Nanoseconds()
	if err != nil {
		b.opErrors[op]++
	}
}

// BasicStats is a snapshot of a Basic sink.
type BasicStats struct {
	Loads          int64
	LoadDurations  []float64
	LoadSizes      []float64
	LoadThroughput float64
	OpCount        map[string]int64
	OpErrors       map[string]int64
	OpAvgNanos     map[string]int64
}

// Stats returns a copy of the current observations.
func (b *Basic) Stats() BasicStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := BasicStats{
		Loads:          b.loads.Load(),
		LoadDurations:  append([]float64(nil), b.durations...),
		LoadSizes:      append([]float64(nil), b.sizes...),
		LoadThroughput: b.throughput,
		OpCount:        make(map[string]int64, len(b.opCount)),
		OpErrors:       make(map[string]int64, len(b.opErrors)),
		OpAvgNanos:     make(map[string]int64, len(b.opCount)),
	}
	for op, n := range b.opCount {
		s.OpCount[op] = n
		s.OpAvgNanos[op] = b.opTotalNanos[op] / n
	}
	for op, n := range b.opErrors {
		s.OpErrors[op] = n
	}
	return s
}

// RecordLoad reports one materialized load to s: duration, size and the
// derived throughput. A zero duration reports zero throughput.
func RecordLoad(s Sink, d time.Duration, sizeBytes int64) {
	seconds := d.Seconds()
	s.ObserveLoadDuration(seconds)
	s.ObserveLoadSizeBytes(float64(sizeBytes))
	var tput float64
	if seconds > 0 {
		tput = float64(sizeBytes) / seconds
	}
	s.SetLoadThroughput(tput)
}

// ObserveOperation forwards to s when it implements OperationObserver.
func ObserveOperation(s Sink, op string, start time.Time, err error) {
	if o, ok := s.(OperationObserver); ok {
		o.ObserveOperation(op, time.Since(start), err)
	}
}
