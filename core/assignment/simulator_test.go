package assignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/oncall/core/calendar"
	"github.com/kilianp07/oncall/core/model"
)

func octoberDays(t *testing.T) []string {
	t.Helper()
	days, err := calendar.OnCallDays(model.MustMonth("2025-10"), nil)
	require.NoError(t, err)
	return days
}

func TestSimulateDistinctPreferences(t *testing.T) {
	days := octoberDays(t)
	res, err := Simulate(Input{
		Days:        days,
		Ranking:     []string{"A", "B"},
		Preferences: map[string][]string{"A": {"2025-10-04"}, "B": {"2025-10-11"}},
		MaxShifts:   map[string]int{"A": 1, "B": 1},
		Capacity:    Capacity{Default: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, res.Assignments["2025-10-04"])
	assert.Equal(t, []string{"B"}, res.Assignments["2025-10-11"])
	assert.Len(t, res.Assignments, len(days))
	for _, d := range days {
		if d == "2025-10-04" || d == "2025-10-11" {
			continue
		}
		assert.NotNil(t, res.Assignments[d], d)
		assert.Empty(t, res.Assignments[d], d)
	}
	assert.Equal(t, map[string]int{"A": 1, "B": 1}, res.Counts)
	assert.Empty(t, res.UnderAssigned)
	assert.Len(t, res.Shortfalls, len(days)-2)
}

func TestSimulateContestedDayGoesToHigherPriority(t *testing.T) {
	res, err := Simulate(Input{
		Days:        []string{"2025-10-04", "2025-10-05"},
		Ranking:     []string{"B", "A"},
		Preferences: map[string][]string{"A": {"2025-10-04"}, "B": {"2025-10-04"}},
		MaxShifts:   map[string]int{"A": 1, "B": 1},
		Capacity:    Capacity{Default: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"B"}, res.Assignments["2025-10-04"])
	assert.Empty(t, res.Assignments["2025-10-05"])
	assert.Equal(t, 0, res.Counts["A"])
	assert.Equal(t, []UnderAssigned{{Engineer: "A", MaxShifts: 1, Assigned: 0}}, res.UnderAssigned)
}

func TestSimulateFallsBackToLowerPreference(t *testing.T) {
	res, err := Simulate(Input{
		Days:        []string{"2025-10-04", "2025-10-05", "2025-10-11"},
		Ranking:     []string{"A", "B"},
		Preferences: map[string][]string{"A": {"2025-10-04"}, "B": {"2025-10-04", "2025-10-11"}},
		MaxShifts:   map[string]int{"A": 1, "B": 1},
		Capacity:    Capacity{Default: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, res.Assignments["2025-10-11"])
}

func TestSimulateRoundRobinAcrossPasses(t *testing.T) {
	// A is capped at 2; B gets a turn between A's first and second day.
	res, err := Simulate(Input{
		Days:    []string{"2025-10-04", "2025-10-05", "2025-10-11"},
		Ranking: []string{"A", "B"},
		Preferences: map[string][]string{
			"A": {"2025-10-04", "2025-10-05", "2025-10-11"},
			"B": {"2025-10-05", "2025-10-04"},
		},
		MaxShifts: map[string]int{"A": 2, "B": 1},
		Capacity:  Capacity{Default: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Passes)
	assert.Equal(t, model.Assignments{
		"2025-10-04": {"A"},
		"2025-10-05": {"B"},
		"2025-10-11": {"A"},
	}, res.Assignments)
}

func TestSimulateCapacityOverrides(t *testing.T) {
	res, err := Simulate(Input{
		Days:    []string{"2025-10-04", "2025-10-05"},
		Ranking: []string{"A", "B", "C"},
		Preferences: map[string][]string{
			"A": {"2025-10-04"},
			"B": {"2025-10-04"},
			"C": {"2025-10-05", "2025-10-04"},
		},
		MaxShifts: map[string]int{"A": 1, "B": 1, "C": 1},
		Capacity:  Capacity{Default: 2, Overrides: map[string]int{"2025-10-05": 0}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, res.Assignments["2025-10-04"])
	assert.Empty(t, res.Assignments["2025-10-05"])
	assert.Equal(t, []UnderAssigned{{Engineer: "C", MaxShifts: 1, Assigned: 0}}, res.UnderAssigned)
	assert.Empty(t, res.Shortfalls)
}

func TestSimulateIgnoresNonOnCallPreferences(t *testing.T) {
	res, err := Simulate(Input{
		Days:        []string{"2025-10-04"},
		Ranking:     []string{"A"},
		Preferences: map[string][]string{"A": {"2025-10-06", "2025-11-01", "2025-10-04"}},
		MaxShifts:   map[string]int{"A": 3},
		Capacity:    Capacity{Default: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, model.Assignments{"2025-10-04": {"A"}}, res.Assignments)
	assert.Equal(t, []UnderAssigned{{Engineer: "A", MaxShifts: 3, Assigned: 1}}, res.UnderAssigned)
}

func TestSimulateAvoidAdjacent(t *testing.T) {
	in := Input{
		Days:        []string{"2025-10-04", "2025-10-05", "2025-10-11"},
		Ranking:     []string{"A"},
		Preferences: map[string][]string{"A": {"2025-10-04", "2025-10-05", "2025-10-11"}},
		MaxShifts:   map[string]int{"A": 2},
		Capacity:    Capacity{Default: 1},
	}

	res, err := Simulate(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-10-04", "2025-10-05"}, res.Assignments.DaysOf("A"))

	in.Consecutive = map[string]model.ConsecutivePref{"A": model.ConsecutiveAvoid}
	res, err = Simulate(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-10-04", "2025-10-11"}, res.Assignments.DaysOf("A"))
}

func TestSimulatePreferenceDepth(t *testing.T) {
	in := Input{
		Days:        []string{"2025-10-04", "2025-10-05"},
		Ranking:     []string{"A", "B"},
		Preferences: map[string][]string{"A": {"2025-10-04"}, "B": {"2025-10-04", "2025-10-05"}},
		MaxShifts:   map[string]int{"A": 1, "B": 1},
		Capacity:    Capacity{Default: 1},
	}
	res, err := Simulate(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, res.Assignments["2025-10-05"])

	in.PreferenceDepth = 1
	res, err = Simulate(in)
	require.NoError(t, err)
	assert.Empty(t, res.Assignments["2025-10-05"])
	assert.Equal(t, 0, res.Counts["B"])
}

func TestSimulateZeroCapEngineerNeverAssigned(t *testing.T) {
	res, err := Simulate(Input{
		Days:        []string{"2025-10-04"},
		Ranking:     []string{"A", "B"},
		Preferences: map[string][]string{"A": {"2025-10-04"}, "B": {"2025-10-04"}},
		MaxShifts:   map[string]int{"A": 0, "B": 1},
		Capacity:    Capacity{Default: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, res.Assignments["2025-10-04"])
	assert.Empty(t, res.UnderAssigned)
}

func TestSimulateRejectsInvalidInput(t *testing.T) {
	base := func() Input {
		return Input{
			Days:      []string{"2025-10-04"},
			Ranking:   []string{"A"},
			MaxShifts: map[string]int{"A": 1},
			Capacity:  Capacity{Default: 1},
		}
	}
	cases := map[string]struct {
		mutate func(*Input)
		want   error
	}{
		"negative capacity": {func(in *Input) { in.Capacity.Default = -1 }, model.ErrInvalidCapacity},
		"negative override": {func(in *Input) { in.Capacity.Overrides = map[string]int{"2025-10-04": -2} }, model.ErrInvalidCapacity},
		"negative cap":      {func(in *Input) { in.MaxShifts["A"] = -1 }, model.ErrInvalidShiftCap},
		"duplicate rank":    {func(in *Input) { in.Ranking = []string{"A", "A"} }, model.ErrDuplicateEngineer},
		"bad day":           {func(in *Input) { in.Days = []string{"2025-13-01"} }, model.ErrInvalidDate},
		"repeated day":      {func(in *Input) { in.Days = []string{"2025-10-04", "2025-10-04"} }, model.ErrInvalidDate},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := base()
			tc.mutate(&in)
			_, err := Simulate(in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSimulateProperties(t *testing.T) {
	days := octoberDays(t)
	in := Input{
		Days:    days,
		Ranking: []string{"e1", "e2", "e3", "e4", "e5"},
		Preferences: map[string][]string{
			"e1": {"2025-10-04", "2025-10-05", "2025-10-11", "2025-10-12"},
			"e2": {"2025-10-04", "2025-10-18", "2025-10-19"},
			"e3": {"2025-10-05", "2025-10-04", "2025-10-25", "2025-10-26"},
			"e4": {"2025-10-11", "2025-10-12", "2025-10-04"},
			"e5": {"2025-10-26", "2025-10-25", "2025-10-19", "2025-10-18"},
		},
		MaxShifts: map[string]int{"e1": 3, "e2": 2, "e3": 2, "e4": 1, "e5": 4},
		Capacity:  Capacity{Default: 2, Overrides: map[string]int{"2025-10-04": 3}},
		Consecutive: map[string]model.ConsecutivePref{
			"e5": model.ConsecutiveAvoid,
		},
	}
	snapshot := in.Clone()

	first, err := Simulate(in)
	require.NoError(t, err)
	second, err := Simulate(in)
	require.NoError(t, err)
	assert.Equal(t, first, second, "deterministic")
	assert.Equal(t, snapshot, in, "input untouched")

	index := calendar.Index(days)
	for d, ids := range first.Assignments {
		_, onCall := index[d]
		assert.True(t, onCall, d)
		assert.LessOrEqual(t, len(ids), in.Capacity.Of(d), d)
		seen := map[string]bool{}
		for _, id := range ids {
			assert.False(t, seen[id], "%s twice on %s", id, d)
			seen[id] = true
		}
	}
	for id, n := range first.Assignments.Counts() {
		assert.LessOrEqual(t, n, in.MaxShifts[id], id)
		assert.Equal(t, first.Counts[id], n, id)
	}
	held := first.Assignments.DaysOf("e5")
	for i := 1; i < len(held); i++ {
		assert.NotEqual(t, index[held[i-1]]+1, index[held[i]], "e5 adjacent %v", held)
	}
}

func TestMergePreservesTeamOrder(t *testing.T) {
	a := Result{Assignments: model.Assignments{"2025-10-04": {"A"}, "2025-10-05": {}}}
	b := Result{Assignments: model.Assignments{"2025-10-04": {"X"}}}
	got := Merge(a, b)
	assert.Equal(t, model.Assignments{"2025-10-04": {"A", "X"}, "2025-10-05": {}}, got)
}

func TestPlanAppliesDefaults(t *testing.T) {
	m := model.MustMonth("2025-10")
	team := model.Team{ID: "core", ShiftOverrides: map[string]int{"2025-10-04": 3}}
	engineers := []model.Engineer{
		{ID: "A", Team: "core", MaxShifts: model.Shifts(0), Preferences: map[string][]string{
			"2025-10": {"2025-10-04"}, "2025-11": {"2025-11-01"},
		}},
		{ID: "B", Team: "core", ConsecutivePref: model.ConsecutiveAvoid},
	}
	in := Plan(team, engineers, m, []string{"2025-10-04"}, []string{"B", "A"},
		Defaults{ShiftsPerDay: 2, MaxShifts: 4, PreferenceDepth: 3})

	assert.Equal(t, Capacity{Default: 2, Overrides: map[string]int{"2025-10-04": 3}}, in.Capacity)
	assert.Equal(t, map[string]int{"A": 0, "B": 4}, in.MaxShifts)
	assert.Equal(t, []string{"2025-10-04"}, in.Preferences["A"])
	assert.Empty(t, in.Preferences["B"])
	assert.Equal(t, map[string]model.ConsecutivePref{"B": model.ConsecutiveAvoid}, in.Consecutive)
	assert.Equal(t, 3, in.PreferenceDepth)

	in.Preferences["A"][0] = "2025-10-05"
	in.Capacity.Overrides["2025-10-04"] = 0
	assert.Equal(t, "2025-10-04", engineers[0].Preferences["2025-10"][0])
	assert.Equal(t, 3, team.ShiftOverrides["2025-10-04"])
}
