package metrics

import "github.com/kilianp07/oncall/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// PrometheusAddr is where /metrics is served when a prometheus sink is configured.
	PrometheusAddr string `json:"prometheus_addr" yaml:"prometheus_addr"`
}

// HasSink reports whether a sink of the given type is configured.
func (c Config) HasSink(typ string) bool {
	for _, s := range c.Sinks {
		if s.Type == typ {
			return true
		}
	}
	return false
}
