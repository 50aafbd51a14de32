// Package storetest holds behaviour checks shared by every store backend.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/store"
)

// Run exercises a fresh store returned by open for each subtest.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("TeamsAndEngineers", func(t *testing.T) { testRoster(t, open(t)) })
	t.Run("CaseInsensitiveDuplicate", func(t *testing.T) { testDuplicate(t, open(t)) })
	t.Run("SnapshotsWriteOnce", func(t *testing.T) { testSnapshots(t, open(t)) })
	t.Run("MembershipClearsSnapshots", func(t *testing.T) { testInvalidation(t, open(t)) })
	t.Run("ReplaceAssignments", func(t *testing.T) { testAssignments(t, open(t)) })
	t.Run("Holidays", func(t *testing.T) { testHolidays(t, open(t)) })
}

func seed(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveTeam(ctx, model.Team{ID: "core", BaseGroups: model.Groups{{"alice", "bob"}, {"carol"}}, ShiftsPerDay: 1}))
	for _, id := range []string{"alice", "bob", "carol"} {
		require.NoError(t, s.AddEngineer(ctx, model.Engineer{ID: id, Team: "core", MaxShifts: model.Shifts(2)}))
	}
}

func testRoster(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s)

	team, err := s.Team(ctx, "core")
	require.NoError(t, err)
	assert.Equal(t, model.Groups{{"alice", "bob"}, {"carol"}}, team.BaseGroups, "grouped engineers are not appended twice")

	require.NoError(t, s.AddEngineer(ctx, model.Engineer{ID: "dave", Team: "core", MaxShifts: model.Shifts(1),
		Preferences: map[string][]string{"2025-10": {"2025-10-04"}}, ConsecutivePref: model.ConsecutiveAvoid}))
	team, err = s.Team(ctx, "core")
	require.NoError(t, err)
	assert.Equal(t, model.Groups{{"alice", "bob"}, {"carol", "dave"}}, team.BaseGroups)

	dave, err := s.Engineer(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-10-04"}, dave.PreferencesFor(model.MustMonth("2025-10")))
	assert.Equal(t, model.ConsecutiveAvoid, dave.ConsecutivePref)

	engs, err := s.Engineers(ctx, "core")
	require.NoError(t, err)
	require.Len(t, engs, 4)
	assert.Equal(t, "alice", engs[0].ID)

	require.NoError(t, s.SaveTeam(ctx, model.Team{ID: "infra", BaseGroups: model.Groups{}, ShiftsPerDay: 2}))
	dave.Team = "infra"
	require.NoError(t, s.UpdateEngineer(ctx, dave))
	core, err := s.Team(ctx, "core")
	require.NoError(t, err)
	assert.Equal(t, model.Groups{{"alice", "bob"}, {"carol"}}, core.BaseGroups)
	infra, err := s.Team(ctx, "infra")
	require.NoError(t, err)
	assert.Equal(t, model.Groups{{"dave"}}, infra.BaseGroups)

	require.NoError(t, s.DeleteEngineer(ctx, "bob"))
	core, err = s.Team(ctx, "core")
	require.NoError(t, err)
	assert.Equal(t, model.Groups{{"alice"}, {"carol"}}, core.BaseGroups)
	_, err = s.Engineer(ctx, "bob")
	assert.ErrorIs(t, err, model.ErrUnknownEngineer)

	_, err = s.Team(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrUnknownTeam)
	teams, err := s.Teams(ctx)
	require.NoError(t, err)
	assert.Len(t, teams, 2)
}

func testDuplicate(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s)
	err := s.AddEngineer(ctx, model.Engineer{ID: "ALICE", Team: "core"})
	assert.ErrorIs(t, err, model.ErrDuplicateEngineer)
	require.NoError(t, s.AddEngineer(ctx, model.Engineer{ID: "kate", Team: "core"}))
	err = s.AddEngineer(ctx, model.Engineer{ID: "\u212Aate", Team: "core"})
	assert.ErrorIs(t, err, model.ErrDuplicateEngineer, "Kelvin sign folds to k")
	require.NoError(t, s.AddEngineer(ctx, model.Engineer{ID: "sam", Team: "core"}))
	err = s.AddEngineer(ctx, model.Engineer{ID: "\u017Fam", Team: "core"})
	assert.ErrorIs(t, err, model.ErrDuplicateEngineer, "long s folds to s")
	err = s.AddEngineer(ctx, model.Engineer{ID: "zoe", Team: "ghost"})
	assert.ErrorIs(t, err, model.ErrUnknownTeam)
}

func testSnapshots(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s)
	oct := model.MustMonth("2025-10")

	_, ok, err := s.Snapshot(ctx, "core", oct)
	require.NoError(t, err)
	assert.False(t, ok)

	first := model.Groups{{"carol"}, {"bob", "alice"}}
	stored, created, err := s.PutSnapshot(ctx, "core", oct, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, first, stored)

	stored, created, err = s.PutSnapshot(ctx, "core", oct, model.Groups{{"alice"}})
	require.NoError(t, err)
	assert.False(t, created, "second write must not replace the snapshot")
	assert.Equal(t, first, stored)

	_, _, err = s.PutSnapshot(ctx, "core", model.MustMonth("2024-12"), model.Groups{{"bob"}, {"alice"}})
	require.NoError(t, err)
	_, _, err = s.PutSnapshot(ctx, "core", model.MustMonth("2026-01"), model.Groups{{"x"}})
	require.NoError(t, err)

	m, g, ok, err := s.LatestSnapshotBefore(ctx, "core", model.MustMonth("2025-12"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, oct, m)
	assert.Equal(t, first, g)

	m, _, ok, err = s.LatestSnapshotBefore(ctx, "core", model.MustMonth("2025-01"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.MustMonth("2024-12"), m, "year boundaries compare as calendar months")

	_, _, ok, err = s.LatestSnapshotBefore(ctx, "core", model.MustMonth("2024-12"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func testInvalidation(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s)
	oct := model.MustMonth("2025-10")
	_, _, err := s.PutSnapshot(ctx, "core", oct, model.Groups{{"carol"}, {"bob", "alice"}})
	require.NoError(t, err)

	require.NoError(t, s.SetBaseGroups(ctx, "core", model.Groups{{"carol", "alice", "bob"}}))
	_, ok, err := s.Snapshot(ctx, "core", oct)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = s.PutSnapshot(ctx, "core", oct, model.Groups{{"alice", "bob", "carol"}})
	require.NoError(t, err)
	team, err := s.Team(ctx, "core")
	require.NoError(t, err)
	team.ShiftsPerDay = 3
	require.NoError(t, s.SaveTeam(ctx, team))
	_, ok, err = s.Snapshot(ctx, "core", oct)
	require.NoError(t, err)
	assert.True(t, ok, "capacity edits keep snapshots")

	assert.ErrorIs(t, s.SetBaseGroups(ctx, "core", model.Groups{{"a"}, {"a"}}), model.ErrDuplicateEngineer)
}

func testAssignments(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s)
	oct := model.MustMonth("2025-10")

	got, err := s.Assignments(ctx, "core", oct)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.ReplaceAssignments(ctx, "core", oct, model.Assignments{
		"2025-10-04": {"alice"}, "2025-10-05": {"bob", "carol"}, "2025-10-11": {},
	}))
	require.NoError(t, s.ReplaceAssignments(ctx, "core", oct, model.Assignments{
		"2025-10-04": {"carol"}, "2025-10-05": {}, "2025-10-11": {},
	}))
	got, err = s.Assignments(ctx, "core", oct)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, got["2025-10-04"])
	assert.Empty(t, got["2025-10-05"], "regeneration fully replaces the previous run")
	assert.NotContains(t, got.Counts(), "alice")

	got["2025-10-04"][0] = "mutated"
	again, err := s.Assignments(ctx, "core", oct)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, again["2025-10-04"])

	assert.ErrorIs(t, s.ReplaceAssignments(ctx, "ghost", oct, model.Assignments{}), model.ErrUnknownTeam)
}

func testHolidays(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveHoliday(ctx, model.Holiday{Date: "2025-12-25", Note: "Christmas"}))
	require.NoError(t, s.SaveHoliday(ctx, model.Holiday{Date: "2025-01-01"}))
	assert.ErrorIs(t, s.SaveHoliday(ctx, model.Holiday{Date: "xmas"}), model.ErrInvalidDate)
	hs, err := s.Holidays(ctx)
	require.NoError(t, err)
	require.Len(t, hs, 2)
	assert.Equal(t, "2025-01-01", hs[0].Date)
	assert.Equal(t, "Christmas", hs[1].Note)
}
