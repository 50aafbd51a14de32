package scenarios

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/oncall/core/logger"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/schedule"
	"github.com/kilianp07/oncall/core/store"
	"github.com/kilianp07/oncall/infra/metrics"
)

func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	st := store.NewMemoryStore()
	require.NoError(t, sc.Apply(ctx, st))
	svc := schedule.NewService(st, schedule.Options{Defaults: sc.Defaults, Metrics: sink, Logger: logger.Nop{}})

	for _, b := range sc.Before {
		_, err := svc.Run(ctx, model.MustMonth(b))
		require.NoError(t, err, "generate %s", b)
	}
	m := model.MustMonth(sc.Month)

	days, err := svc.OnCallDays(ctx, m)
	require.NoError(t, err)
	if sc.Expected.Days != nil {
		assert.Equal(t, sc.Expected.Days, days, "on-call days")
	}
	for team, want := range sc.Expected.Priority {
		got, err := svc.Priority(ctx, team, m)
		require.NoError(t, err)
		assert.Equal(t, want, got, "priority of %s", team)
	}

	out, err := svc.Run(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, float64(len(sc.Before)+1)*float64(len(sc.Teams)), runsTotal(t, reg))

	for team, want := range sc.Expected.Assignments {
		got, err := svc.Schedule(ctx, team, m)
		require.NoError(t, err)
		for _, d := range days {
			exp := want[d]
			if exp == nil {
				exp = []string{}
			}
			assert.Equal(t, exp, got[d], "%s on %s", team, d)
		}
	}
	counts := out.Combined.Counts()
	for _, id := range sc.Expected.Unassigned {
		assert.Zero(t, counts[id], "%s should have no shift", id)
	}

	if w := sc.WhatIf; w != nil {
		before, err := svc.Schedule(ctx, w.Team, m)
		require.NoError(t, err)
		got, err := svc.WhatIf(ctx, w.Team, m, w.Engineer, w.Preferences, w.MaxShifts)
		require.NoError(t, err)
		want := w.Expected
		if want == nil {
			want = []string{}
		}
		assert.Equal(t, want, got, "what-if dates")
		after, err := svc.Schedule(ctx, w.Team, m)
		require.NoError(t, err)
		assert.Equal(t, before, after, "what-if must not commit")
	}
}

func runsTotal(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range mfs {
		if mf.GetName() != "oncall_schedule_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
