package metrics

import "errors"

// MultiSink fans every event out to several sinks. Optional recorders are
// forwarded only to sinks implementing them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink combines sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordScheduleRun(ev ScheduleRunEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordScheduleRun(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordRotation(ev RotationEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(RotationRecorder); ok {
			if err := r.RecordRotation(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordWhatIf(ev WhatIfEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(WhatIfRecorder); ok {
			if err := r.RecordWhatIf(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
