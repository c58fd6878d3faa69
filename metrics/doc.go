// Package metrics defines the Metrics Sink the engine reports segment loads
// to, with no-op, in-memory and Prometheus implementations.
//
// Every Sink receives three observations per materialized load: the load
// duration in seconds, the loaded size in bytes, and the resulting throughput
// in bytes per second. Sinks that also implement OperationObserver receive a
// timing for every engine operation.
package metrics
