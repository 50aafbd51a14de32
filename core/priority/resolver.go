// Package priority computes the monthly fairness ordering of each team.
//
// A month's ordering is derived from the nearest earlier month that was
// already computed (or the team's base grouping) by exactly one rotation
// step, then stored once and never recomputed. Skipped months therefore do
// not catch up several rotations.
package priority

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/kilianp07/oncall/core/logger"
	"github.com/kilianp07/oncall/core/metrics"
	"github.com/kilianp07/oncall/core/model"
)

// Store is the persistence the resolver needs.
type Store interface {
	Team(ctx context.Context, id string) (model.Team, error)
	Engineers(ctx context.Context, teamID string) ([]model.Engineer, error)
	Snapshot(ctx context.Context, teamID string, m model.Month) (model.Groups, bool, error)
	LatestSnapshotBefore(ctx context.Context, teamID string, m model.Month) (model.Month, model.Groups, bool, error)
	PutSnapshot(ctx context.Context, teamID string, m model.Month, g model.Groups) (model.Groups, bool, error)
}

// Resolver resolves and memoizes monthly priority snapshots. Resolution is
// serialized per team inside the process; across processes the store's
// write-once PutSnapshot keeps a single committed rotation per team-month.
type Resolver struct {
	store   Store
	log     logger.Logger
	metrics metrics.RotationRecorder
	locks   *xsync.Map[string, *sync.Mutex]
	now     func() time.Time
}

// NewResolver creates a Resolver. log and rec may be nil.
func NewResolver(store Store, log logger.Logger, rec metrics.RotationRecorder) *Resolver {
	if rec == nil {
		rec = metrics.NopSink{}
	}
	return &Resolver{
		store:   store,
		log:     logger.OrNop(log),
		metrics: rec,
		locks:   xsync.NewMap[string, *sync.Mutex](),
		now:     time.Now,
	}
}

func (r *Resolver) lock(teamID string) func() {
	mu, _ := r.locks.LoadOrStore(teamID, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}

// Resolve returns the priority groups of team for month m, computing and
// storing them on first request.
func (r *Resolver) Resolve(ctx context.Context, teamID string, m model.Month) (model.Groups, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %04d-%02d", model.ErrInvalidMonth, m.Year, int(m.Month))
	}
	unlock := r.lock(teamID)
	defer unlock()

	if g, ok, err := r.store.Snapshot(ctx, teamID, m); err != nil {
		return nil, fmt.Errorf("load snapshot %s/%s: %w", teamID, m, err)
	} else if ok {
		r.record(teamID, m, g, false)
		return g, nil
	}
	next, err := r.compute(ctx, teamID, m)
	if err != nil {
		return nil, err
	}
	stored, created, err := r.store.PutSnapshot(ctx, teamID, m, next)
	if err != nil {
		return nil, fmt.Errorf("store snapshot %s/%s: %w", teamID, m, err)
	}
	if !created {
		r.log.Warnf("snapshot %s/%s was committed concurrently, using stored rotation", teamID, m)
	}
	r.record(teamID, m, stored, created)
	return stored, nil
}

// Preview returns what Resolve would return without storing anything.
func (r *Resolver) Preview(ctx context.Context, teamID string, m model.Month) (model.Groups, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %04d-%02d", model.ErrInvalidMonth, m.Year, int(m.Month))
	}
	if g, ok, err := r.store.Snapshot(ctx, teamID, m); err != nil {
		return nil, fmt.Errorf("load snapshot %s/%s: %w", teamID, m, err)
	} else if ok {
		return g, nil
	}
	return r.compute(ctx, teamID, m)
}

func (r *Resolver) compute(ctx context.Context, teamID string, m model.Month) (model.Groups, error) {
	team, err := r.store.Team(ctx, teamID)
	if err != nil {
		return nil, err
	}
	engineers, err := r.store.Engineers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	members := make([]string, len(engineers))
	for i, e := range engineers {
		members[i] = e.ID
	}

	base := team.BaseGroups
	from := "base groups"
	prev, g, ok, err := r.store.LatestSnapshotBefore(ctx, teamID, m)
	if err != nil {
		return nil, fmt.Errorf("load previous snapshot %s/%s: %w", teamID, m, err)
	}
	if ok {
		base = g
		from = prev.String()
	}
	reconciled := Reconcile(base, members)
	if !reconciled.Equal(base) {
		r.log.Debugw("rotation base reconciled with roster", map[string]any{
			"team": teamID, "month": m.String(), "base": from,
		})
	}
	next := Rotate(reconciled)
	r.log.Debugf("rotated %s for %s from %s", teamID, m, from)
	return next, nil
}

func (r *Resolver) record(teamID string, m model.Month, g model.Groups, computed bool) {
	ev := metrics.RotationEvent{
		Team:     teamID,
		Month:    m.String(),
		Computed: computed,
		Groups:   len(g),
		Members:  len(g.Flatten()),
		Time:     r.now(),
	}
	if err := r.metrics.RecordRotation(ev); err != nil {
		r.log.Warnf("record rotation: %v", err)
	}
}
