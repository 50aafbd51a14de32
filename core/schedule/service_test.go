package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/oncall/core/assignment"
	"github.com/kilianp07/oncall/core/metrics"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/runlog"
	"github.com/kilianp07/oncall/core/store"
	"github.com/kilianp07/oncall/internal/eventbus"
)

type memRuns struct {
	mu   sync.Mutex
	recs []runlog.Record
}

func (m *memRuns) Append(_ context.Context, r runlog.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, r)
	return nil
}

func (m *memRuns) Query(_ context.Context, q runlog.Query) ([]runlog.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []runlog.Record{}
	for _, r := range m.recs {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRuns) Close() error { return nil }

type sinkSpy struct {
	mu      sync.Mutex
	runs    []metrics.ScheduleRunEvent
	whatifs []metrics.WhatIfEvent
}

func (s *sinkSpy) RecordScheduleRun(ev metrics.ScheduleRunEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, ev)
	return nil
}

func (s *sinkSpy) RecordWhatIf(ev metrics.WhatIfEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whatifs = append(s.whatifs, ev)
	return nil
}

type fixture struct {
	svc  *Service
	st   *store.MemoryStore
	runs *memRuns
	sink *sinkSpy
	bus  *eventbus.Bus[Committed]
}

var october = model.MustMonth("2025-10")

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.SaveTeam(ctx, model.Team{ID: "core", ShiftsPerDay: 1, BaseGroups: model.Groups{{"B"}, {"A"}}}))
	require.NoError(t, st.AddEngineer(ctx, model.Engineer{ID: "A", Team: "core", MaxShifts: model.Shifts(1),
		Preferences: map[string][]string{"2025-10": {"2025-10-04"}}}))
	require.NoError(t, st.AddEngineer(ctx, model.Engineer{ID: "B", Team: "core", MaxShifts: model.Shifts(1),
		Preferences: map[string][]string{"2025-10": {"2025-10-11"}}}))

	f := &fixture{st: st, runs: &memRuns{}, sink: &sinkSpy{}, bus: eventbus.New[Committed](8)}
	f.svc = NewService(st, Options{
		Defaults: assignment.Defaults{ShiftsPerDay: 1, MaxShifts: 2},
		Metrics:  f.sink,
		RunLog:   f.runs,
		Bus:      f.bus,
	})
	f.svc.newID = func() string { return "run-1" }
	return f
}

func TestRunCommitsSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	committed := f.bus.Subscribe()

	out, err := f.svc.Run(ctx, october)
	require.NoError(t, err)
	assert.Equal(t, "run-1", out.RunID)

	res := out.Teams["core"]
	assert.Equal(t, []string{"A"}, res.Assignments["2025-10-04"])
	assert.Equal(t, []string{"B"}, res.Assignments["2025-10-11"])
	assert.Empty(t, res.Assignments["2025-10-05"])
	assert.Equal(t, res.Assignments, out.Combined)

	stored, err := f.svc.Schedule(ctx, "core", october)
	require.NoError(t, err)
	assert.Equal(t, res.Assignments, stored)

	groups, err := f.svc.Priority(ctx, "core", october)
	require.NoError(t, err)
	assert.Equal(t, model.Groups{{"A"}, {"B"}}, groups)

	ev := <-committed
	assert.Equal(t, "core", ev.Team)
	assert.Equal(t, october, ev.Month)
	assert.Equal(t, res.Assignments, ev.Assignments)

	require.Len(t, f.sink.runs, 1)
	assert.Equal(t, 8, f.sink.runs[0].Days)
	assert.Equal(t, 2, f.sink.runs[0].Filled)
	assert.Equal(t, 6, f.sink.runs[0].Shortfalls)

	recs, err := f.svc.Runs(ctx, runlog.Query{Team: "core", Month: "2025-10"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"A", "B"}, recs[0].Ranking)
}

func TestRunReplacesPreviousAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Run(ctx, october)
	require.NoError(t, err)

	eng, err := f.st.Engineer(ctx, "A")
	require.NoError(t, err)
	eng.Preferences["2025-10"] = []string{"2025-10-18"}
	require.NoError(t, f.st.UpdateEngineer(ctx, eng))

	_, err = f.svc.Run(ctx, october, "core")
	require.NoError(t, err)
	stored, err := f.svc.Schedule(ctx, "core", october)
	require.NoError(t, err)
	assert.Empty(t, stored["2025-10-04"])
	assert.Equal(t, []string{"A"}, stored["2025-10-18"])
	assert.Equal(t, []string{"2025-10-18"}, stored.DaysOf("A"))
}

func TestRunMultipleTeams(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.st.SaveTeam(ctx, model.Team{ID: "apps", BaseGroups: model.Groups{{"X"}}}))
	// No explicit cap: the default of 2 applies, and capacity falls back to 1.
	require.NoError(t, f.st.AddEngineer(ctx, model.Engineer{ID: "X", Team: "apps",
		Preferences: map[string][]string{"2025-10": {"2025-10-04", "2025-10-05", "2025-10-11"}}}))

	out, err := f.svc.Run(ctx, october)
	require.NoError(t, err)
	assert.Len(t, out.Teams, 2)
	assert.Equal(t, []string{"2025-10-04", "2025-10-05"}, out.Teams["apps"].Assignments.DaysOf("X"))
	assert.Equal(t, []string{"X", "A"}, out.Combined["2025-10-04"])
	assert.Len(t, f.sink.runs, 2)
}

func TestRunErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Run(ctx, model.Month{})
	assert.ErrorIs(t, err, model.ErrInvalidMonth)

	_, err = f.svc.Run(ctx, october, "ghost")
	assert.ErrorIs(t, err, model.ErrUnknownTeam)
	assert.Empty(t, f.runs.recs)
}

type failingStore struct {
	*store.MemoryStore
}

func (failingStore) ReplaceAssignments(context.Context, string, model.Month, model.Assignments) error {
	return errors.New("disk full")
}

func TestRunCommitFailureIsNotPublished(t *testing.T) {
	f := newFixture(t)
	svc := NewService(failingStore{f.st}, Options{RunLog: f.runs, Bus: f.bus})
	sub := f.bus.Subscribe()

	_, err := svc.Run(context.Background(), october)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, f.runs.recs)
	select {
	case ev := <-sub:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestWhatIfHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.bus.Subscribe()

	got, err := f.svc.WhatIf(ctx, "core", october, "B", []string{"2025-10-04", "2025-10-05"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-10-05"}, got)

	_, ok, err := f.st.Snapshot(ctx, "core", october)
	require.NoError(t, err)
	assert.False(t, ok)
	stored, err := f.svc.Schedule(ctx, "core", october)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Empty(t, f.runs.recs)
	assert.Empty(t, f.sink.runs)
	assert.Len(t, f.sink.whatifs, 1)
	select {
	case ev := <-sub:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}

	_, err = f.svc.WhatIf(ctx, "core", october, "nobody", nil, 1)
	assert.ErrorIs(t, err, model.ErrUnknownEngineer)
}

func TestConcurrentRunsAgree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	results := make([]*Outcome, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Run(ctx, october)
		}(i)
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Teams["core"].Assignments, results[i].Teams["core"].Assignments)
	}
}

func TestOnCallDaysUsesStoredHolidays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.st.SaveHoliday(ctx, model.Holiday{Date: "2025-12-25", Note: "Christmas"}))

	days, err := f.svc.OnCallDays(ctx, model.MustMonth("2025-12"))
	require.NoError(t, err)
	assert.Contains(t, days, "2025-12-25")
	assert.Len(t, days, 9)
}

func TestReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Run(ctx, october)
	require.NoError(t, err)

	r, err := f.svc.Report(ctx, "core", october)
	require.NoError(t, err)
	assert.Equal(t, 8, r.Slots)
	assert.Equal(t, 2, r.Filled)
	assert.InDelta(t, 1.0, r.Satisfied, 1e-9)
}

func TestRanking(t *testing.T) {
	f := newFixture(t)
	got, err := f.svc.Ranking(context.Background(), "core", october)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, got)
}
