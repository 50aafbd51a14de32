package metrics

import "github.com/kilianp07/oncall/core/factory"

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a metrics sink factory identified by name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// NewMetricsSink creates a MetricsSink from the provided configuration.
// Several configured sinks are combined in a MultiSink.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]MetricsSink, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}

// AsRotationRecorder returns s as a RotationRecorder, or a no-op recorder.
func AsRotationRecorder(s MetricsSink) RotationRecorder {
	if r, ok := s.(RotationRecorder); ok {
		return r
	}
	return NopSink{}
}

// AsWhatIfRecorder returns s as a WhatIfRecorder, or a no-op recorder.
func AsWhatIfRecorder(s MetricsSink) WhatIfRecorder {
	if r, ok := s.(WhatIfRecorder); ok {
		return r
	}
	return NopSink{}
}
