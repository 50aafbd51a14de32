// Package metrics defines the observability surface of the rota engine.
// Sinks record committed schedule runs, priority resolutions and what-if
// analyses. Concrete sinks (Prometheus, InfluxDB) live in infra/metrics and
// register themselves with the factory so that several configured sinks are
// combined into a MultiSink.
package metrics
