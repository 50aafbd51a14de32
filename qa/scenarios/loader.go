// Package scenarios replays YAML roster scenarios through the schedule
// service and checks the documented outcomes.
package scenarios

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/oncall/core/assignment"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/store"
)

// WhatIfDef is a hypothetical run checked after the real one.
type WhatIfDef struct {
	Team        string   `yaml:"team"`
	Engineer    string   `yaml:"engineer"`
	Preferences []string `yaml:"preferences"`
	MaxShifts   int      `yaml:"max_shifts"`
	Expected    []string `yaml:"expected"`
}

type Expected struct {
	// Days are the month's on-call days, when checked.
	Days []string `yaml:"days,omitempty"`
	// Priority maps a team to its groups for the month.
	Priority map[string]model.Groups `yaml:"priority,omitempty"`
	// Assignments maps a team to its committed days. On-call days left out
	// must be empty.
	Assignments map[string]model.Assignments `yaml:"assignments,omitempty"`
	// Unassigned lists engineers who get no shift at all.
	Unassigned []string `yaml:"unassigned,omitempty"`
}

type Scenario struct {
	Name          string `yaml:"name"`
	Description   string `yaml:"description,omitempty"`
	store.Fixture `yaml:",inline"`
	Defaults      assignment.Defaults `yaml:"defaults"`
	// Before lists months generated, in order, ahead of Month.
	Before   []string   `yaml:"before,omitempty"`
	Month    string     `yaml:"month"`
	WhatIf   *WhatIfDef `yaml:"whatif,omitempty"`
	Expected Expected   `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = filepath.Base(path)
	}
	if _, err := model.ParseMonth(sc.Month); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sc.Defaults.SetDefaults()
	return &sc, nil
}

// LoadDir loads every *.yaml scenario of dir in file name order.
func LoadDir(dir string) ([]*Scenario, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	out := make([]*Scenario, 0, len(files))
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}
