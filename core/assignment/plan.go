package assignment

import "github.com/kilianp07/oncall/core/model"

// Defaults fill the settings a roster leaves open.
type Defaults struct {
	// ShiftsPerDay applies to teams whose own capacity is zero.
	ShiftsPerDay int `json:"shifts_per_day" yaml:"shifts_per_day" validate:"gte=0"`
	// MaxShifts applies to engineers without an explicit cap.
	MaxShifts       int `json:"max_shifts" yaml:"max_shifts" validate:"gte=0"`
	PreferenceDepth int `json:"preference_depth" yaml:"preference_depth" validate:"gte=0"`
}

// Plan assembles the simulation input of one team for month m. ranking must
// already be filtered to current members. The returned input shares nothing
// with its arguments.
func Plan(t model.Team, engineers []model.Engineer, m model.Month, days, ranking []string, def Defaults) Input {
	in := Input{
		Days:            append([]string(nil), days...),
		Ranking:         append([]string(nil), ranking...),
		Preferences:     make(map[string][]string, len(engineers)),
		MaxShifts:       make(map[string]int, len(engineers)),
		Consecutive:     make(map[string]model.ConsecutivePref, len(engineers)),
		Capacity:        CapacityOf(t.Clone()),
		PreferenceDepth: def.PreferenceDepth,
	}
	if in.Capacity.Default == 0 {
		in.Capacity.Default = def.ShiftsPerDay
	}
	for _, e := range engineers {
		in.Preferences[e.ID] = append([]string(nil), e.PreferencesFor(m)...)
		in.MaxShifts[e.ID] = e.Cap(def.MaxShifts)
		if e.ConsecutivePref != "" {
			in.Consecutive[e.ID] = e.ConsecutivePref
		}
	}
	return in
}

// SetDefaults fills unset fields with one shift per day, one shift per
// engineer and the first ten preferences.
func (d *Defaults) SetDefaults() {
	if d.ShiftsPerDay == 0 {
		d.ShiftsPerDay = 1
	}
	if d.MaxShifts == 0 {
		d.MaxShifts = 1
	}
	if d.PreferenceDepth == 0 {
		d.PreferenceDepth = 10
	}
}
