package metrics

import "time"

// ScheduleRunEvent summarizes one committed schedule for one team.
type ScheduleRunEvent struct {
	RunID string
	Team  string
	Month string
	// Days is the number of on-call days, Slots the summed capacity over them.
	Days          int
	Slots         int
	Filled        int
	Shortfalls    int
	Engineers     int
	UnderAssigned int
	Duration      time.Duration
	Time          time.Time
}

// MetricsSink records schedule runs for observability purposes.
type MetricsSink interface {
	RecordScheduleRun(ev ScheduleRunEvent) error
}

// RotationEvent records a priority resolution. Computed is false on a cache hit.
type RotationEvent struct {
	Team     string
	Month    string
	Computed bool
	Groups   int
	Members  int
	Time     time.Time
}

// RotationRecorder records priority resolutions.
type RotationRecorder interface {
	RecordRotation(ev RotationEvent) error
}

// WhatIfEvent records a what-if analysis.
type WhatIfEvent struct {
	Team     string
	Month    string
	Engineer string
	Granted  int
	Time     time.Time
}

// WhatIfRecorder records what-if analyses.
type WhatIfRecorder interface {
	RecordWhatIf(ev WhatIfEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordScheduleRun(ScheduleRunEvent) error { return nil }
func (NopSink) RecordRotation(RotationEvent) error       { return nil }
func (NopSink) RecordWhatIf(WhatIfEvent) error           { return nil }
