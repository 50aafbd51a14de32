package model

import "sort"

// Assignments maps an ISO date to the ordered engineers on call that day.
type Assignments map[string][]string

// Days returns the dates in calendar order.
func (a Assignments) Days() []string {
	days := make([]string, 0, len(a))
	for d := range a {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}

// DaysOf returns, in calendar order, the dates engineer id is assigned to.
func (a Assignments) DaysOf(id string) []string {
	var out []string
	for _, d := range a.Days() {
		for _, e := range a[d] {
			if e == id {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// Counts returns the number of assigned days per engineer.
func (a Assignments) Counts() map[string]int {
	out := make(map[string]int)
	for _, ids := range a {
		for _, id := range ids {
			out[id]++
		}
	}
	return out
}

// Clone returns a deep copy.
func (a Assignments) Clone() Assignments {
	out := make(Assignments, len(a))
	for d, ids := range a {
		out[d] = append(make([]string, 0, len(ids)), ids...)
	}
	return out
}

// Merge unions other into a by date, appending other's engineers after a's.
func (a Assignments) Merge(other Assignments) {
	for d, ids := range other {
		cur, ok := a[d]
		if !ok {
			cur = []string{}
		}
		a[d] = append(cur, ids...)
	}
}
