// Package prometheus renders authgate engine metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] wraps an [authgate.Engine] and serves an [http.Handler].
// Counters are named authgate_*_total; the one histogram is
// authgate_login_latency_seconds.
//
// The handler renders on demand from the engine snapshot, so nothing is registered in
// a global registry and callers mount it wherever they like.
package prometheus
