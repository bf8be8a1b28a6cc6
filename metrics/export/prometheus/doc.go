// Package prometheus provides Prometheus collectors for studentgate metrics.
//
// [NewPrometheusExporter] accepts a [studentgate.Engine] and exposes an [http.Handler]
// that renders all studentgate counters and histograms in Prometheus text exposition format.
// Counter names are prefixed studentgate_*_total; the single histogram is
// studentgate_login_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
