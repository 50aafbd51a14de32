package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Holiday is an extra on-call day. It decodes either from a bare date string
// or from a {date, note} record.
type Holiday struct {
	Date string `json:"date" yaml:"date"`
	Note string `json:"note,omitempty" yaml:"note,omitempty"`
}

type holidayRecord struct {
	Date string `json:"date" yaml:"date"`
	Note string `json:"note,omitempty" yaml:"note,omitempty"`
}

// UnmarshalJSON accepts "2025-12-25" as well as {"date":"2025-12-25","note":"..."}.
func (h *Holiday) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*h = Holiday{Date: s}
		return nil
	}
	var rec holidayRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return fmt.Errorf("holiday: %w", err)
	}
	*h = Holiday(rec)
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML fixtures.
func (h *Holiday) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*h = Holiday{Date: node.Value}
		return nil
	}
	var rec holidayRecord
	if err := node.Decode(&rec); err != nil {
		return fmt.Errorf("holiday: %w", err)
	}
	*h = Holiday(rec)
	return nil
}

// HolidayDates normalizes holidays to a set of date strings.
func HolidayDates(hs []Holiday) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(hs))
	for _, h := range hs {
		if _, err := ParseDate(h.Date); err != nil {
			return nil, err
		}
		set[h.Date] = struct{}{}
	}
	return set, nil
}
