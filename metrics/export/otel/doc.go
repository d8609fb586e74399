// Package otel exposes authgate engine metrics through an OpenTelemetry meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter and one
// Int64ObservableGauge per login latency bucket. A single callback reads
// [authgate.Engine.MetricsSnapshot] on each collection cycle.
//
// The caller owns the MeterProvider; the exporter only borrows a Meter.
package otel
