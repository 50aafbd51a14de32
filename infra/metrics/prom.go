package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/oncall/core/metrics"
)

// PromSink records schedule runs, rotations and what-if requests as
// Prometheus metrics.
type PromSink struct {
	runs          *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	slots         *prometheus.GaugeVec
	filled        *prometheus.GaugeVec
	shortfalls    *prometheus.GaugeVec
	underAssigned *prometheus.GaugeVec
	rotations     *prometheus.CounterVec
	whatifs       *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// register adds c to reg, reusing the collector already registered under
// the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oncall_schedule_runs_total",
		Help: "Committed schedule runs per team",
	}, []string{"team"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oncall_schedule_run_duration_seconds",
		Help:    "Time to resolve, simulate and commit one team's month",
		Buckets: prometheus.DefBuckets,
	}, []string{"team"})); err != nil {
		return nil, err
	}
	gauge := func(name, help string) (*prometheus.GaugeVec, error) {
		return register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, []string{"team", "month"}))
	}
	if s.slots, err = gauge("oncall_schedule_slots", "Staffing slots over the month's on-call days"); err != nil {
		return nil, err
	}
	if s.filled, err = gauge("oncall_schedule_filled_slots", "Slots filled by the last committed run"); err != nil {
		return nil, err
	}
	if s.shortfalls, err = gauge("oncall_schedule_shortfall_days", "On-call days staffed below capacity"); err != nil {
		return nil, err
	}
	if s.underAssigned, err = gauge("oncall_schedule_under_assigned_engineers", "Engineers left below their cap"); err != nil {
		return nil, err
	}
	if s.rotations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oncall_priority_resolutions_total",
		Help: "Priority resolutions by team and whether a snapshot was computed",
	}, []string{"team", "computed"})); err != nil {
		return nil, err
	}
	if s.whatifs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oncall_whatif_requests_total",
		Help: "What-if analyses per team",
	}, []string{"team"})); err != nil {
		return nil, err
	}
	return s, nil
}

// RecordScheduleRun updates the per-team run metrics.
func (s *PromSink) RecordScheduleRun(ev coremetrics.ScheduleRunEvent) error {
	s.runs.WithLabelValues(ev.Team).Inc()
	s.duration.WithLabelValues(ev.Team).Observe(ev.Duration.Seconds())
	s.slots.WithLabelValues(ev.Team, ev.Month).Set(float64(ev.Slots))
	s.filled.WithLabelValues(ev.Team, ev.Month).Set(float64(ev.Filled))
	s.shortfalls.WithLabelValues(ev.Team, ev.Month).Set(float64(ev.Shortfalls))
	s.underAssigned.WithLabelValues(ev.Team, ev.Month).Set(float64(ev.UnderAssigned))
	return nil
}

// RecordRotation counts a priority resolution.
func (s *PromSink) RecordRotation(ev coremetrics.RotationEvent) error {
	s.rotations.WithLabelValues(ev.Team, strconv.FormatBool(ev.Computed)).Inc()
	return nil
}

// RecordWhatIf counts a what-if analysis.
func (s *PromSink) RecordWhatIf(ev coremetrics.WhatIfEvent) error {
	s.whatifs.WithLabelValues(ev.Team).Inc()
	return nil
}
