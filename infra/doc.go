// Package infra holds the adapters around the rota core: the SQLite roster
// store, zerolog logging, Prometheus and InfluxDB sinks, Sentry and the MQTT
// schedule publisher. They depend only on interfaces defined in core.
package infra
