// Package store defines persistence for rosters, monthly priority snapshots
// and committed assignments.
package store

import (
	"context"

	"github.com/kilianp07/oncall/core/model"
)

// Rosters holds teams, engineers and holidays. Any change to a team's
// membership or grouping clears that team's monthly snapshots.
type Rosters interface {
	Team(ctx context.Context, id string) (model.Team, error)
	Teams(ctx context.Context) ([]model.Team, error)
	// SaveTeam creates or updates a team. Snapshots are cleared when the
	// base groups change.
	SaveTeam(ctx context.Context, t model.Team) error
	SetBaseGroups(ctx context.Context, teamID string, groups model.Groups) error

	Engineer(ctx context.Context, id string) (model.Engineer, error)
	// Engineers returns the members of a team sorted by identifier.
	Engineers(ctx context.Context, teamID string) ([]model.Engineer, error)
	// AddEngineer rejects identifiers equal to an existing one ignoring case
	// and appends the newcomer to the last base group of its team unless the
	// grouping already lists it.
	AddEngineer(ctx context.Context, e model.Engineer) error
	// UpdateEngineer replaces an engineer record. A team change moves the
	// engineer between base groupings.
	UpdateEngineer(ctx context.Context, e model.Engineer) error
	DeleteEngineer(ctx context.Context, id string) error

	Holidays(ctx context.Context) ([]model.Holiday, error)
	SaveHoliday(ctx context.Context, h model.Holiday) error
}

// Snapshots is the write-once store of monthly priority rotations.
type Snapshots interface {
	Snapshot(ctx context.Context, teamID string, m model.Month) (model.Groups, bool, error)
	// LatestSnapshotBefore returns the snapshot of the most recent month
	// strictly before m, if any.
	LatestSnapshotBefore(ctx context.Context, teamID string, m model.Month) (model.Month, model.Groups, bool, error)
	// PutSnapshot stores g unless a snapshot already exists for team+month.
	// It returns the stored snapshot and whether this call created it.
	PutSnapshot(ctx context.Context, teamID string, m model.Month, g model.Groups) (model.Groups, bool, error)
}

// Schedules holds committed assignments partitioned by team and month.
type Schedules interface {
	// ReplaceAssignments atomically replaces the team's month.
	ReplaceAssignments(ctx context.Context, teamID string, m model.Month, a model.Assignments) error
	Assignments(ctx context.Context, teamID string, m model.Month) (model.Assignments, error)
}

// Store groups every persistence concern of the service.
type Store interface {
	Rosters
	Snapshots
	Schedules
	Close() error
}
