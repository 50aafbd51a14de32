// Package export writes committed schedules as JSON, CSV or an HTML chart.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/report"
)

// Supported formats.
const (
	FormatJSON  = "json"
	FormatCSV   = "csv"
	FormatChart = "html"
)

// Schedule is the exported view of a team's committed month.
type Schedule struct {
	Team        string            `json:"team"`
	Month       string            `json:"month"`
	Assignments model.Assignments `json:"assignments"`
	Report      *report.Report    `json:"report,omitempty"`
}

// Write encodes s in the named format. The chart format needs a report.
func Write(w io.Writer, format string, s Schedule) error {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return WriteJSON(w, s)
	case FormatCSV:
		return WriteCSV(w, s.Team, s.Assignments)
	case FormatChart, "chart":
		if s.Report == nil {
			return fmt.Errorf("chart export of %s/%s needs a report", s.Team, s.Month)
		}
		return WriteChart(w, *s.Report)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteJSON writes the schedule to w in indented JSON.
func WriteJSON(w io.Writer, s Schedule) error {
	if s.Assignments == nil {
		s.Assignments = model.Assignments{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteCSV writes one row per assigned engineer in date order. Days without
// anyone on call get a single row with an empty engineer so shortfalls stay
// visible.
func WriteCSV(w io.Writer, team string, a model.Assignments) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"team", "date", "slot", "engineer"}); err != nil {
		return err
	}
	for _, d := range a.Days() {
		engineers := a[d]
		if len(engineers) == 0 {
			if err := cw.Write([]string{team, d, "", ""}); err != nil {
				return err
			}
			continue
		}
		for i, id := range engineers {
			if err := cw.Write([]string{team, d, strconv.Itoa(i + 1), id}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
