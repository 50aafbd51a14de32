package model

import "fmt"

// Groups is an ordered partition of engineer identifiers into priority groups.
type Groups [][]string

// Flatten concatenates the groups in order. The position of an identifier in
// the result is its priority rank.
func (g Groups) Flatten() []string {
	n := 0
	for _, grp := range g {
		n += len(grp)
	}
	out := make([]string, 0, n)
	for _, grp := range g {
		out = append(out, grp...)
	}
	return out
}

// Clone returns a deep copy. A nil receiver yields an empty, non-nil partition.
func (g Groups) Clone() Groups {
	out := make(Groups, len(g))
	for i, grp := range g {
		out[i] = append(make([]string, 0, len(grp)), grp...)
	}
	return out
}

// Members returns the set of identifiers in the partition.
func (g Groups) Members() map[string]struct{} {
	set := make(map[string]struct{})
	for _, grp := range g {
		for _, id := range grp {
			set[id] = struct{}{}
		}
	}
	return set
}

// Validate checks that every identifier appears exactly once.
func (g Groups) Validate() error {
	seen := make(map[string]struct{})
	for _, grp := range g {
		for _, id := range grp {
			if id == "" {
				return fmt.Errorf("%w: empty identifier in groups", ErrUnknownEngineer)
			}
			if _, ok := seen[id]; ok {
				return fmt.Errorf("%w: %s appears in more than one group position", ErrDuplicateEngineer, id)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}

// Team owns a grouping of engineers and the per-day staffing capacity.
type Team struct {
	ID             string         `json:"id" yaml:"id"`
	BaseGroups     Groups         `json:"baseGroups" yaml:"base_groups"`
	ShiftsPerDay   int            `json:"shiftsPerDay" yaml:"shifts_per_day"`
	ShiftOverrides map[string]int `json:"shiftOverrides,omitempty" yaml:"shift_overrides,omitempty"`
}

// Capacity returns the effective staffing capacity of the team on day.
func (t Team) Capacity(day string) int {
	if c, ok := t.ShiftOverrides[day]; ok {
		return c
	}
	return t.ShiftsPerDay
}

// Validate checks the structural invariants of a team.
func (t Team) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: empty team id", ErrUnknownTeam)
	}
	if t.ShiftsPerDay < 0 {
		return fmt.Errorf("%w: team %s shifts per day %d", ErrInvalidCapacity, t.ID, t.ShiftsPerDay)
	}
	for day, c := range t.ShiftOverrides {
		if _, err := ParseDate(day); err != nil {
			return err
		}
		if c < 0 {
			return fmt.Errorf("%w: team %s override %s=%d", ErrInvalidCapacity, t.ID, day, c)
		}
	}
	return t.BaseGroups.Validate()
}

// Clone returns a deep copy of the team.
func (t Team) Clone() Team {
	out := t
	out.BaseGroups = t.BaseGroups.Clone()
	if t.ShiftOverrides != nil {
		out.ShiftOverrides = make(map[string]int, len(t.ShiftOverrides))
		for k, v := range t.ShiftOverrides {
			out.ShiftOverrides[k] = v
		}
	}
	return out
}

// Equal reports whether both partitions hold the same members in the same order.
func (g Groups) Equal(o Groups) bool {
	if len(g) != len(o) {
		return false
	}
	for i := range g {
		if len(g[i]) != len(o[i]) {
			return false
		}
		for j := range g[i] {
			if g[i][j] != o[i][j] {
				return false
			}
		}
	}
	return true
}

// WithMember returns a copy with id appended to the last group, creating a
// group when the partition is empty.
func (g Groups) WithMember(id string) Groups {
	out := g.Clone()
	if len(out) == 0 {
		return Groups{{id}}
	}
	out[len(out)-1] = append(out[len(out)-1], id)
	return out
}

// Without returns a copy with id removed. Emptied groups are kept.
func (g Groups) Without(id string) Groups {
	return g.Filter(func(m string) bool { return m != id })
}

// Filter returns a copy keeping only the members for which keep is true.
func (g Groups) Filter(keep func(string) bool) Groups {
	out := make(Groups, len(g))
	for i, grp := range g {
		out[i] = make([]string, 0, len(grp))
		for _, m := range grp {
			if keep(m) {
				out[i] = append(out[i], m)
			}
		}
	}
	return out
}
