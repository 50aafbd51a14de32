package model

import (
	"fmt"
	"strings"
)

// ConsecutivePref expresses how an engineer feels about back-to-back on-call days.
type ConsecutivePref string

const (
	ConsecutiveNeutral ConsecutivePref = "neutral"
	ConsecutiveAvoid   ConsecutivePref = "avoid-adjacent"
)

// Valid reports whether p is a known preference. Empty means neutral.
func (p ConsecutivePref) Valid() bool {
	return p == "" || p == ConsecutiveNeutral || p == ConsecutiveAvoid
}

// Engineer is a member of exactly one team.
type Engineer struct {
	ID    string `json:"id" yaml:"id"`
	Team  string `json:"team" yaml:"team"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	// MaxShifts caps assignments per month. Nil falls back to the
	// configured default.
	MaxShifts *int `json:"maxShifts,omitempty" yaml:"max_shifts,omitempty"`
	// Preferences maps a "YYYY-MM" key to desired dates, most desired first.
	Preferences     map[string][]string `json:"preferences,omitempty" yaml:"preferences,omitempty"`
	ConsecutivePref ConsecutivePref     `json:"consecutivePref,omitempty" yaml:"consecutive_pref,omitempty"`
}

// PreferencesFor returns the ordered preferences submitted for month m.
func (e Engineer) PreferencesFor(m Month) []string {
	return e.Preferences[m.String()]
}

// Cap returns the engineer's monthly cap, or def when none is set.
func (e Engineer) Cap(def int) int {
	if e.MaxShifts == nil {
		return def
	}
	return *e.MaxShifts
}

// Shifts returns a cap value suitable for Engineer.MaxShifts.
func Shifts(n int) *int { return &n }

// Validate checks the structural invariants of an engineer record.
func (e Engineer) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: empty engineer id", ErrUnknownEngineer)
	}
	if e.Team == "" {
		return fmt.Errorf("%w: engineer %s has no team", ErrUnknownTeam, e.ID)
	}
	if e.MaxShifts != nil && *e.MaxShifts < 0 {
		return fmt.Errorf("%w: engineer %s max shifts %d", ErrInvalidShiftCap, e.ID, *e.MaxShifts)
	}
	if !e.ConsecutivePref.Valid() {
		return fmt.Errorf("engineer %s: unknown consecutive preference %q", e.ID, e.ConsecutivePref)
	}
	for month, days := range e.Preferences {
		if _, err := ParseMonth(month); err != nil {
			return err
		}
		for _, d := range days {
			if _, err := ParseDate(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the engineer.
func (e Engineer) Clone() Engineer {
	out := e
	if e.MaxShifts != nil {
		out.MaxShifts = Shifts(*e.MaxShifts)
	}
	if e.Preferences != nil {
		out.Preferences = make(map[string][]string, len(e.Preferences))
		for k, v := range e.Preferences {
			out.Preferences[k] = append([]string(nil), v...)
		}
	}
	return out
}

// FoldID returns the case-folded form under which engineer identifiers are
// unique. Upper then lower maps pairs like "k" and the Kelvin sign together.
func FoldID(id string) string { return strings.ToLower(strings.ToUpper(id)) }

// SameID compares engineer identifiers case-insensitively.
func SameID(a, b string) bool { return FoldID(a) == FoldID(b) }
