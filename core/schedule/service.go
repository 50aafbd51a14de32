// Package schedule runs and commits monthly on-call schedules.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/kilianp07/oncall/core/assignment"
	"github.com/kilianp07/oncall/core/calendar"
	"github.com/kilianp07/oncall/core/logger"
	"github.com/kilianp07/oncall/core/metrics"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/monitoring"
	"github.com/kilianp07/oncall/core/priority"
	"github.com/kilianp07/oncall/core/report"
	"github.com/kilianp07/oncall/core/runlog"
	"github.com/kilianp07/oncall/core/store"
	"github.com/kilianp07/oncall/core/whatif"
	"github.com/kilianp07/oncall/internal/eventbus"
)

// Committed is published after a team's month has been replaced.
type Committed struct {
	RunID       string                 `json:"run_id"`
	Team        string                 `json:"team"`
	Month       model.Month            `json:"month"`
	Assignments model.Assignments      `json:"assignments"`
	Shortfalls  []assignment.Shortfall `json:"shortfalls"`
	Time        time.Time              `json:"time"`
}

// Outcome is the result of one run over one or more teams.
type Outcome struct {
	RunID string                       `json:"run_id"`
	Month model.Month                  `json:"month"`
	Teams map[string]assignment.Result `json:"teams"`
	// Combined unions every team's assignments, teams in identifier order.
	Combined model.Assignments `json:"combined"`
}

// Options carries the optional collaborators of a Service.
type Options struct {
	Defaults assignment.Defaults
	Logger   logger.Logger
	Metrics  metrics.MetricsSink
	RunLog   runlog.Store
	Bus      *eventbus.Bus[Committed]
}

// Service is the entry point of every schedule operation.
type Service struct {
	store    store.Store
	resolver *priority.Resolver
	analyzer *whatif.Analyzer
	defaults assignment.Defaults
	log      logger.Logger
	metrics  metrics.MetricsSink
	runs     runlog.Store
	bus      *eventbus.Bus[Committed]
	locks    *xsync.Map[string, *sync.Mutex]
	now      func() time.Time
	newID    func() string
}

// NewService wires a Service around st.
func NewService(st store.Store, opts Options) *Service {
	log := logger.OrNop(opts.Logger)
	sink := opts.Metrics
	if sink == nil {
		sink = metrics.NopSink{}
	}
	runs := opts.RunLog
	if runs == nil {
		runs = runlog.NopStore{}
	}
	resolver := priority.NewResolver(st, log, metrics.AsRotationRecorder(sink))
	return &Service{
		store:    st,
		resolver: resolver,
		analyzer: whatif.New(st, resolver, opts.Defaults, log, metrics.AsWhatIfRecorder(sink)),
		defaults: opts.Defaults,
		log:      log,
		metrics:  sink,
		runs:     runs,
		bus:      opts.Bus,
		locks:    xsync.NewMap[string, *sync.Mutex](),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Store exposes the underlying roster store.
func (s *Service) Store() store.Store { return s.store }

// Defaults returns the settings applied to teams and engineers without their own.
func (s *Service) Defaults() assignment.Defaults { return s.defaults }

func (s *Service) lock(teamID string) func() {
	mu, _ := s.locks.LoadOrStore(teamID, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}

// OnCallDays returns the on-call days of m using the stored holidays.
func (s *Service) OnCallDays(ctx context.Context, m model.Month) ([]string, error) {
	holidays, err := s.store.Holidays(ctx)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	return calendar.OnCallDays(m, holidays)
}

// Priority resolves, and on first request stores, the team's groups for m.
func (s *Service) Priority(ctx context.Context, teamID string, m model.Month) (model.Groups, error) {
	return s.resolver.Resolve(ctx, teamID, m)
}

// Ranking returns the flattened priority order of current team members.
func (s *Service) Ranking(ctx context.Context, teamID string, m model.Month) ([]string, error) {
	groups, err := s.Priority(ctx, teamID, m)
	if err != nil {
		return nil, err
	}
	engineers, err := s.store.Engineers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return priority.Ranking(groups, ids(engineers)), nil
}

// Run simulates and commits month m for the given teams, or for every team
// when none is given. Each team's month is replaced atomically; a failure
// stops the run and leaves already committed teams in place.
func (s *Service) Run(ctx context.Context, m model.Month, teams ...string) (*Outcome, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %04d-%02d", model.ErrInvalidMonth, m.Year, int(m.Month))
	}
	if len(teams) == 0 {
		all, err := s.store.Teams(ctx)
		if err != nil {
			return nil, fmt.Errorf("load teams: %w", err)
		}
		for _, t := range all {
			teams = append(teams, t.ID)
		}
	}
	teams = append([]string(nil), teams...)
	sort.Strings(teams)

	days, err := s.OnCallDays(ctx, m)
	if err != nil {
		return nil, err
	}
	out := &Outcome{
		RunID:    s.newID(),
		Month:    m,
		Teams:    make(map[string]assignment.Result, len(teams)),
		Combined: model.Assignments{},
	}
	for _, d := range days {
		out.Combined[d] = []string{}
	}
	s.log.Infof("run %s: scheduling %d team(s) for %s over %d on-call days", out.RunID, len(teams), m, len(days))
	for _, teamID := range teams {
		var res assignment.Result
		err := monitoring.Guard(monitoring.Tags("schedule", teamID, m.String()), func() error {
			var err error
			res, err = s.runTeam(ctx, out.RunID, teamID, m, days)
			return err
		})
		if err != nil {
			monitoring.CaptureException(err, map[string]string{"run_id": out.RunID, "team": teamID, "month": m.String()})
			return nil, fmt.Errorf("schedule %s/%s: %w", teamID, m, err)
		}
		out.Teams[teamID] = res
		out.Combined.Merge(res.Assignments)
	}
	return out, nil
}

func (s *Service) runTeam(ctx context.Context, runID, teamID string, m model.Month, days []string) (assignment.Result, error) {
	start := s.now()
	unlock := s.lock(teamID)
	defer unlock()

	team, err := s.store.Team(ctx, teamID)
	if err != nil {
		return assignment.Result{}, err
	}
	groups, err := s.resolver.Resolve(ctx, teamID, m)
	if err != nil {
		return assignment.Result{}, err
	}
	engineers, err := s.store.Engineers(ctx, teamID)
	if err != nil {
		return assignment.Result{}, err
	}
	ranking := priority.Ranking(groups, ids(engineers))
	res, err := assignment.Simulate(assignment.Plan(team, engineers, m, days, ranking, s.defaults))
	if err != nil {
		return assignment.Result{}, err
	}
	if err := s.store.ReplaceAssignments(ctx, teamID, m, res.Assignments); err != nil {
		return assignment.Result{}, fmt.Errorf("commit: %w", err)
	}
	elapsed := s.now().Sub(start)
	if len(res.Shortfalls) > 0 || len(res.UnderAssigned) > 0 {
		s.log.Warnf("run %s: %s/%s has %d understaffed day(s) and %d engineer(s) below cap",
			runID, teamID, m, len(res.Shortfalls), len(res.UnderAssigned))
	}
	s.publish(runID, team, m, days, ranking, res, elapsed)
	return res, nil
}

// publish fans a committed result out to metrics, the run log and the bus.
// Failures here are logged and never undo the commit.
func (s *Service) publish(runID string, team model.Team, m model.Month, days, ranking []string, res assignment.Result, elapsed time.Duration) {
	now := s.now()
	capacity := assignment.CapacityOf(team)
	if capacity.Default == 0 {
		capacity.Default = s.defaults.ShiftsPerDay
	}
	slots, filled := 0, 0
	for _, d := range days {
		slots += capacity.Of(d)
		filled += len(res.Assignments[d])
	}
	ev := metrics.ScheduleRunEvent{
		RunID:         runID,
		Team:          team.ID,
		Month:         m.String(),
		Days:          len(days),
		Slots:         slots,
		Filled:        filled,
		Shortfalls:    len(res.Shortfalls),
		Engineers:     len(ranking),
		UnderAssigned: len(res.UnderAssigned),
		Duration:      elapsed,
		Time:          now,
	}
	if err := s.metrics.RecordScheduleRun(ev); err != nil {
		s.log.Warnf("record schedule run: %v", err)
	}
	rec := runlog.Record{
		RunID:         runID,
		Timestamp:     now,
		Team:          team.ID,
		Month:         m.String(),
		Ranking:       ranking,
		Assignments:   res.Assignments.Clone(),
		Counts:        res.Counts,
		Shortfalls:    res.Shortfalls,
		UnderAssigned: res.UnderAssigned,
		DurationMS:    elapsed.Milliseconds(),
	}
	// The run log outlives the request that produced the run.
	if err := s.runs.Append(context.Background(), rec); err != nil {
		s.log.Errorf("append run log: %v", err)
		monitoring.CaptureException(err, monitoring.Tags("runlog", team.ID, m.String()))
	}
	if s.bus != nil {
		s.bus.Publish(Committed{
			RunID:       runID,
			Team:        team.ID,
			Month:       m,
			Assignments: res.Assignments.Clone(),
			Shortfalls:  res.Shortfalls,
			Time:        now,
		})
	}
}

// Schedule returns the committed assignments of a team's month.
func (s *Service) Schedule(ctx context.Context, teamID string, m model.Month) (model.Assignments, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %04d-%02d", model.ErrInvalidMonth, m.Year, int(m.Month))
	}
	return s.store.Assignments(ctx, teamID, m)
}

// WhatIf returns the dates engineer would receive with the given
// preferences and cap. Nothing is stored, published or logged to the run log.
func (s *Service) WhatIf(ctx context.Context, teamID string, m model.Month, engineer string, prefs []string, maxShifts int) ([]string, error) {
	return s.analyzer.Analyze(ctx, whatif.Request{
		Team:        teamID,
		Month:       m,
		Engineer:    engineer,
		Preferences: prefs,
		MaxShifts:   maxShifts,
	})
}

// Runs queries the run log.
func (s *Service) Runs(ctx context.Context, q runlog.Query) ([]runlog.Record, error) {
	return s.runs.Query(ctx, q)
}

// Report builds the fairness report of a team's committed month.
func (s *Service) Report(ctx context.Context, teamID string, m model.Month) (report.Report, error) {
	a, err := s.Schedule(ctx, teamID, m)
	if err != nil {
		return report.Report{}, err
	}
	team, err := s.store.Team(ctx, teamID)
	if err != nil {
		return report.Report{}, err
	}
	engineers, err := s.store.Engineers(ctx, teamID)
	if err != nil {
		return report.Report{}, err
	}
	days, err := s.OnCallDays(ctx, m)
	if err != nil {
		return report.Report{}, err
	}
	return report.Build(team, engineers, m, days, a, s.defaults), nil
}

func ids(engineers []model.Engineer) []string {
	out := make([]string, len(engineers))
	for i, e := range engineers {
		out[i] = e.ID
	}
	return out
}
