// Package runlog keeps an append-only history of committed schedule runs.
package runlog

import (
	"context"
	"time"

	"github.com/kilianp07/oncall/core/assignment"
	"github.com/kilianp07/oncall/core/model"
)

// Record captures one committed schedule of one team.
type Record struct {
	RunID         string                     `json:"run_id"`
	Timestamp     time.Time                  `json:"timestamp"`
	Team          string                     `json:"team"`
	Month         string                     `json:"month"`
	Ranking       []string                   `json:"ranking"`
	Assignments   model.Assignments          `json:"assignments"`
	Counts        map[string]int             `json:"counts"`
	Shortfalls    []assignment.Shortfall     `json:"shortfalls"`
	UnderAssigned []assignment.UnderAssigned `json:"under_assigned"`
	DurationMS    int64                      `json:"duration_ms"`
}

// Query filters records. Zero fields match everything.
type Query struct {
	Team  string
	Month string
	RunID string
	Start time.Time
	End   time.Time
}

// Match reports whether r satisfies q.
func (q Query) Match(r Record) bool {
	if q.Team != "" && r.Team != q.Team {
		return false
	}
	if q.Month != "" && r.Month != q.Month {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	return true
}

// Store persists run records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore drops every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return []Record{}, nil }
func (NopStore) Close() error                                   { return nil }
