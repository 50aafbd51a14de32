// Package whatif answers "which days would I get if I submitted these
// preferences?" without touching persisted state.
package whatif

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/oncall/core/assignment"
	"github.com/kilianp07/oncall/core/calendar"
	"github.com/kilianp07/oncall/core/logger"
	"github.com/kilianp07/oncall/core/metrics"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/priority"
)

// Roster is the read-only view of the store the analyzer needs.
type Roster interface {
	Team(ctx context.Context, id string) (model.Team, error)
	Engineers(ctx context.Context, teamID string) ([]model.Engineer, error)
	Holidays(ctx context.Context) ([]model.Holiday, error)
}

// Previewer returns a month's priority groups without storing them.
type Previewer interface {
	Preview(ctx context.Context, teamID string, m model.Month) (model.Groups, error)
}

// Request describes one hypothetical submission.
type Request struct {
	Team        string
	Month       model.Month
	Engineer    string
	Preferences []string
	MaxShifts   int
}

// Validate checks the hypothetical values themselves.
func (r Request) Validate() error {
	if !r.Month.Valid() {
		return fmt.Errorf("%w: %04d-%02d", model.ErrInvalidMonth, r.Month.Year, int(r.Month.Month))
	}
	if r.MaxShifts < 0 {
		return fmt.Errorf("%w: %d", model.ErrInvalidShiftCap, r.MaxShifts)
	}
	for _, d := range r.Preferences {
		if _, err := model.ParseDate(d); err != nil {
			return err
		}
	}
	return nil
}

// Analyzer runs what-if simulations against live roster data.
type Analyzer struct {
	roster   Roster
	prio     Previewer
	defaults assignment.Defaults
	log      logger.Logger
	metrics  metrics.WhatIfRecorder
	now      func() time.Time
}

// New creates an Analyzer. log and rec may be nil.
func New(roster Roster, prio Previewer, def assignment.Defaults, log logger.Logger, rec metrics.WhatIfRecorder) *Analyzer {
	if rec == nil {
		rec = metrics.NopSink{}
	}
	return &Analyzer{
		roster:   roster,
		prio:     prio,
		defaults: def,
		log:      logger.OrNop(log),
		metrics:  rec,
		now:      time.Now,
	}
}

// Analyze returns the dates the engineer would be assigned with the
// hypothetical preferences and cap, everyone else unchanged.
func (a *Analyzer) Analyze(ctx context.Context, req Request) ([]string, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	team, err := a.roster.Team(ctx, req.Team)
	if err != nil {
		return nil, err
	}
	engineers, err := a.roster.Engineers(ctx, req.Team)
	if err != nil {
		return nil, err
	}
	holidays, err := a.roster.Holidays(ctx)
	if err != nil {
		return nil, err
	}
	days, err := calendar.OnCallDays(req.Month, holidays)
	if err != nil {
		return nil, err
	}
	groups, err := a.prio.Preview(ctx, req.Team, req.Month)
	if err != nil {
		return nil, err
	}
	members := make([]string, len(engineers))
	for i, e := range engineers {
		members[i] = e.ID
	}
	in := assignment.Plan(team, engineers, req.Month, days, priority.Ranking(groups, members), a.defaults)

	granted, err := Simulate(in, req.Engineer, req.Preferences, req.MaxShifts)
	if err != nil {
		return nil, err
	}
	a.log.Debugw("what-if analyzed", map[string]any{
		"team": req.Team, "month": req.Month.String(), "engineer": req.Engineer, "granted": len(granted),
	})
	ev := metrics.WhatIfEvent{
		Team:     req.Team,
		Month:    req.Month.String(),
		Engineer: req.Engineer,
		Granted:  len(granted),
		Time:     a.now(),
	}
	if err := a.metrics.RecordWhatIf(ev); err != nil {
		a.log.Warnf("record what-if: %v", err)
	}
	return granted, nil
}

// Simulate overrides one engineer's preferences and cap on a deep copy of
// in and returns the dates that engineer receives. in is left untouched.
func Simulate(in assignment.Input, engineer string, prefs []string, maxShifts int) ([]string, error) {
	ranked := false
	for _, id := range in.Ranking {
		if id == engineer {
			ranked = true
			break
		}
	}
	if !ranked {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownEngineer, engineer)
	}
	work := in.Clone()
	work.Preferences[engineer] = append([]string(nil), prefs...)
	work.MaxShifts[engineer] = maxShifts

	res, err := assignment.Simulate(work)
	if err != nil {
		return nil, err
	}
	granted := res.Assignments.DaysOf(engineer)
	if granted == nil {
		granted = []string{}
	}
	return granted, nil
}
