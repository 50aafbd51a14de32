// Package calendar resolves the on-call days of a month.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/oncall/core/model"
)

// IsWeekend reports whether t falls on a Saturday or a Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// OnCallDays returns every Saturday, Sunday and holiday of month m as sorted,
// de-duplicated ISO dates. Holidays outside m are ignored.
func OnCallDays(m model.Month, holidays []model.Holiday) ([]string, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %04d-%02d", model.ErrInvalidMonth, m.Year, int(m.Month))
	}
	extra, err := model.HolidayDates(holidays)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	first := m.First()
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		if IsWeekend(d) {
			set[model.FormatDate(d)] = struct{}{}
		}
	}
	for day := range extra {
		t, _ := model.ParseDate(day)
		if m.Contains(t) {
			set[day] = struct{}{}
		}
	}
	days := make([]string, 0, len(set))
	for d := range set {
		days = append(days, d)
	}
	sort.Strings(days)
	return days, nil
}

// Index maps each on-call day to its position in days. Positions define the
// adjacency used by consecutive-day avoidance.
func Index(days []string) map[string]int {
	idx := make(map[string]int, len(days))
	for i, d := range days {
		idx[d] = i
	}
	return idx
}
