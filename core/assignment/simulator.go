// Package assignment turns a priority ranking and submitted day preferences
// into a monthly on-call roster.
//
// The policy is a multi-pass greedy: each pass walks engineers in priority
// order and grants every engineer below their cap the best still-acceptable
// date from their preference list. Priority rank therefore decides contested
// days, preference rank decides which day an engineer gets first, and caps
// and capacity are never exceeded. Engineers left below their cap are
// reported, not treated as an error.
package assignment

import (
	"fmt"

	"github.com/kilianp07/oncall/core/calendar"
	"github.com/kilianp07/oncall/core/model"
)

// Capacity is the per-day staffing limit of a team.
type Capacity struct {
	Default   int
	Overrides map[string]int
}

// Of returns the effective capacity of day.
func (c Capacity) Of(day string) int {
	if v, ok := c.Overrides[day]; ok {
		return v
	}
	return c.Default
}

// CapacityOf builds the capacity of a team.
func CapacityOf(t model.Team) Capacity {
	return Capacity{Default: t.ShiftsPerDay, Overrides: t.ShiftOverrides}
}

// Input is everything a simulation depends on.
type Input struct {
	// Days are the on-call days of the month in calendar order.
	Days []string
	// Ranking lists engineers from highest to lowest priority.
	Ranking     []string
	Preferences map[string][]string
	MaxShifts   map[string]int
	Capacity    Capacity
	Consecutive map[string]model.ConsecutivePref
	// PreferenceDepth limits how many preferences are considered per
	// engineer. Zero considers the whole list.
	PreferenceDepth int
}

// Shortfall is an on-call day staffed below capacity.
type Shortfall struct {
	Date     string `json:"date"`
	Capacity int    `json:"capacity"`
	Assigned int    `json:"assigned"`
}

// UnderAssigned is an engineer who ended the month below their cap.
type UnderAssigned struct {
	Engineer  string `json:"engineer"`
	MaxShifts int    `json:"max_shifts"`
	Assigned  int    `json:"assigned"`
}

// Result is the outcome of a simulation.
type Result struct {
	// Assignments holds every on-call day; unstaffed days map to an empty list.
	Assignments   model.Assignments `json:"assignments"`
	Counts        map[string]int    `json:"counts"`
	Passes        int               `json:"passes"`
	Shortfalls    []Shortfall       `json:"shortfalls"`
	UnderAssigned []UnderAssigned   `json:"under_assigned"`
}

// Validate rejects malformed input before any computation.
func (in Input) Validate() error {
	seenDays := make(map[string]struct{}, len(in.Days))
	for _, d := range in.Days {
		if _, err := model.ParseDate(d); err != nil {
			return err
		}
		if _, dup := seenDays[d]; dup {
			return fmt.Errorf("%w: on-call day %s listed twice", model.ErrInvalidDate, d)
		}
		seenDays[d] = struct{}{}
	}
	if in.Capacity.Default < 0 {
		return fmt.Errorf("%w: default %d", model.ErrInvalidCapacity, in.Capacity.Default)
	}
	for d, c := range in.Capacity.Overrides {
		if c < 0 {
			return fmt.Errorf("%w: %s=%d", model.ErrInvalidCapacity, d, c)
		}
	}
	if in.PreferenceDepth < 0 {
		return fmt.Errorf("preference depth %d must not be negative", in.PreferenceDepth)
	}
	seen := make(map[string]struct{}, len(in.Ranking))
	for _, id := range in.Ranking {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s ranked twice", model.ErrDuplicateEngineer, id)
		}
		seen[id] = struct{}{}
		if in.MaxShifts[id] < 0 {
			return fmt.Errorf("%w: %s=%d", model.ErrInvalidShiftCap, id, in.MaxShifts[id])
		}
	}
	return nil
}

// Simulate runs the assignment passes. It does not modify in.
func Simulate(in Input) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	s := newState(in)
	passes := 0
	for _, id := range in.Ranking {
		if c := in.MaxShifts[id]; c > passes {
			passes = c
		}
	}
	for p := 0; p < passes; p++ {
		for _, id := range in.Ranking {
			if s.counts[id] >= in.MaxShifts[id] {
				continue
			}
			if d, ok := s.pick(id); ok {
				s.assign(id, d)
			}
		}
	}
	return s.result(passes), nil
}

type state struct {
	in       Input
	index    map[string]int
	assigned model.Assignments
	holds    map[string]map[string]struct{}
	counts   map[string]int
}

func newState(in Input) *state {
	s := &state{
		in:       in,
		index:    calendar.Index(in.Days),
		assigned: make(model.Assignments, len(in.Days)),
		holds:    make(map[string]map[string]struct{}, len(in.Ranking)),
		counts:   make(map[string]int, len(in.Ranking)),
	}
	for _, d := range in.Days {
		s.assigned[d] = []string{}
	}
	for _, id := range in.Ranking {
		s.holds[id] = map[string]struct{}{}
		s.counts[id] = 0
	}
	return s
}

// pick returns the engineer's best preference that can be granted now.
func (s *state) pick(id string) (string, bool) {
	prefs := s.in.Preferences[id]
	if depth := s.in.PreferenceDepth; depth > 0 && len(prefs) > depth {
		prefs = prefs[:depth]
	}
	for _, d := range prefs {
		if s.acceptable(id, d) {
			return d, true
		}
	}
	return "", false
}

func (s *state) acceptable(id, d string) bool {
	pos, onCall := s.index[d]
	if !onCall {
		return false
	}
	if _, held := s.holds[id][d]; held {
		return false
	}
	if len(s.assigned[d]) >= s.in.Capacity.Of(d) {
		return false
	}
	if s.in.Consecutive[id] == model.ConsecutiveAvoid && s.holdsNeighbour(id, pos) {
		return false
	}
	return true
}

// holdsNeighbour reports whether id is on the on-call day right before or
// after position pos.
func (s *state) holdsNeighbour(id string, pos int) bool {
	for _, n := range []int{pos - 1, pos + 1} {
		if n < 0 || n >= len(s.in.Days) {
			continue
		}
		if _, held := s.holds[id][s.in.Days[n]]; held {
			return true
		}
	}
	return false
}

func (s *state) assign(id, d string) {
	s.assigned[d] = append(s.assigned[d], id)
	s.holds[id][d] = struct{}{}
	s.counts[id]++
}

func (s *state) result(passes int) Result {
	res := Result{
		Assignments:   s.assigned,
		Counts:        s.counts,
		Passes:        passes,
		Shortfalls:    []Shortfall{},
		UnderAssigned: []UnderAssigned{},
	}
	for _, d := range s.in.Days {
		if c := s.in.Capacity.Of(d); len(s.assigned[d]) < c {
			res.Shortfalls = append(res.Shortfalls, Shortfall{Date: d, Capacity: c, Assigned: len(s.assigned[d])})
		}
	}
	for _, id := range s.in.Ranking {
		if c := s.in.MaxShifts[id]; s.counts[id] < c {
			res.UnderAssigned = append(res.UnderAssigned, UnderAssigned{Engineer: id, MaxShifts: c, Assigned: s.counts[id]})
		}
	}
	return res
}

// Clone deep-copies the input so a caller can alter it without touching the
// structures it was built from.
func (in Input) Clone() Input {
	out := in
	out.Days = append([]string(nil), in.Days...)
	out.Ranking = append([]string(nil), in.Ranking...)
	out.Preferences = make(map[string][]string, len(in.Preferences))
	for k, v := range in.Preferences {
		out.Preferences[k] = append([]string(nil), v...)
	}
	out.MaxShifts = make(map[string]int, len(in.MaxShifts))
	for k, v := range in.MaxShifts {
		out.MaxShifts[k] = v
	}
	out.Consecutive = make(map[string]model.ConsecutivePref, len(in.Consecutive))
	for k, v := range in.Consecutive {
		out.Consecutive[k] = v
	}
	if in.Capacity.Overrides != nil {
		out.Capacity.Overrides = make(map[string]int, len(in.Capacity.Overrides))
		for k, v := range in.Capacity.Overrides {
			out.Capacity.Overrides[k] = v
		}
	}
	return out
}

// Merge unions the assignments of several teams by date, in argument order.
func Merge(results ...Result) model.Assignments {
	out := model.Assignments{}
	for _, r := range results {
		out.Merge(r.Assignments)
	}
	return out
}
