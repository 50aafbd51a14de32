// Package report summarizes how fair and how satisfying a committed month is.
package report

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/oncall/core/assignment"
	"github.com/kilianp07/oncall/core/model"
)

// EngineerStat describes one engineer's month.
type EngineerStat struct {
	ID        string   `json:"id"`
	MaxShifts int      `json:"max_shifts"`
	Assigned  int      `json:"assigned"`
	Days      []string `json:"days"`
	Requested int      `json:"requested"`
	// Granted counts assigned days that were on the preference list.
	Granted int `json:"granted"`
	// MeanRank is the mean preference rank of granted days, -1 when none.
	MeanRank float64 `json:"mean_rank"`
}

// DayStat describes one on-call day.
type DayStat struct {
	Date      string   `json:"date"`
	Capacity  int      `json:"capacity"`
	Engineers []string `json:"engineers"`
}

// Report is the fairness summary of a team's month.
type Report struct {
	Team      string         `json:"team"`
	Month     string         `json:"month"`
	Slots     int            `json:"slots"`
	Filled    int            `json:"filled"`
	FillRate  float64        `json:"fill_rate"`
	Mean      float64        `json:"mean_shifts"`
	StdDev    float64        `json:"stddev_shifts"`
	Min       float64        `json:"min_shifts"`
	Max       float64        `json:"max_shifts"`
	Satisfied float64        `json:"satisfaction"`
	Engineers []EngineerStat `json:"engineers"`
	Days      []DayStat      `json:"days"`
}

// Build computes the report of a committed month. days are the month's
// on-call days; assigned dates outside them are still counted per engineer.
func Build(t model.Team, engineers []model.Engineer, m model.Month, days []string, a model.Assignments, def assignment.Defaults) Report {
	capacity := assignment.CapacityOf(t)
	if capacity.Default == 0 {
		capacity.Default = def.ShiftsPerDay
	}
	r := Report{
		Team:      t.ID,
		Month:     m.String(),
		Engineers: make([]EngineerStat, 0, len(engineers)),
		Days:      make([]DayStat, 0, len(days)),
	}
	for _, d := range days {
		c := capacity.Of(d)
		assigned := append([]string{}, a[d]...)
		r.Slots += c
		r.Filled += min(len(assigned), c)
		r.Days = append(r.Days, DayStat{Date: d, Capacity: c, Engineers: assigned})
	}
	if r.Slots > 0 {
		r.FillRate = float64(r.Filled) / float64(r.Slots)
	}

	sorted := append([]model.Engineer(nil), engineers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	counts := make([]float64, 0, len(sorted))
	granted, assignedTotal := 0, 0
	for _, e := range sorted {
		es := engineerStat(e, m, a, def.MaxShifts)
		counts = append(counts, float64(es.Assigned))
		granted += es.Granted
		assignedTotal += es.Assigned
		r.Engineers = append(r.Engineers, es)
	}
	if len(counts) > 0 {
		r.Mean = stat.Mean(counts, nil)
		r.Min = floats.Min(counts)
		r.Max = floats.Max(counts)
	}
	if len(counts) > 1 {
		r.StdDev = math.Sqrt(stat.PopVariance(counts, nil))
	}
	if assignedTotal > 0 {
		r.Satisfied = float64(granted) / float64(assignedTotal)
	}
	return r
}

func engineerStat(e model.Engineer, m model.Month, a model.Assignments, defCap int) EngineerStat {
	prefs := e.PreferencesFor(m)
	rank := make(map[string]int, len(prefs))
	for i, d := range prefs {
		if _, seen := rank[d]; !seen {
			rank[d] = i
		}
	}
	held := a.DaysOf(e.ID)
	if held == nil {
		held = []string{}
	}
	es := EngineerStat{
		ID:        e.ID,
		MaxShifts: e.Cap(defCap),
		Assigned:  len(held),
		Days:      held,
		Requested: len(prefs),
		MeanRank:  -1,
	}
	var ranks []float64
	for _, d := range held {
		if r, ok := rank[d]; ok {
			ranks = append(ranks, float64(r))
		}
	}
	es.Granted = len(ranks)
	if len(ranks) > 0 {
		es.MeanRank = stat.Mean(ranks, nil)
	}
	return es
}
