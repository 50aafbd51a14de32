package runlog

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/oncall/core/assignment"
	"github.com/kilianp07/oncall/core/model"
)

func sample(run, team, month string, ts time.Time) Record {
	return Record{
		RunID:       run,
		Timestamp:   ts,
		Team:        team,
		Month:       month,
		Ranking:     []string{"A", "B"},
		Assignments: model.Assignments{month + "-04": {"A"}},
		Counts:      map[string]int{"A": 1, "B": 0},
		Shortfalls:  []assignment.Shortfall{{Date: month + "-05", Capacity: 1}},
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 9, 20, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Append(ctx, sample("r1", "core", "2025-10", base)))
	require.NoError(t, s.Append(ctx, sample("r1", "infra", "2025-10", base)))
	require.NoError(t, s.Append(ctx, sample("r2", "core", "2025-10", base.Add(time.Hour))))
	require.NoError(t, s.Append(ctx, sample("r3", "core", "2025-11", base.Add(2*time.Hour))))

	all, err := s.Query(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	core, err := s.Query(ctx, Query{Team: "core", Month: "2025-10"})
	require.NoError(t, err)
	require.Len(t, core, 2)
	assert.Equal(t, "r1", core[0].RunID)
	assert.Equal(t, "r2", core[1].RunID)
	assert.Equal(t, []string{"A"}, core[0].Assignments["2025-10-04"])

	run, err := s.Query(ctx, Query{RunID: "r1"})
	require.NoError(t, err)
	assert.Len(t, run, 2)

	late, err := s.Query(ctx, Query{Start: base.Add(90 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, "2025-11", late[0].Month)

	none, err := s.Query(ctx, Query{Team: "ghost"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestRotatingJSONLStore(t *testing.T) {
	s, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "runs", "runs.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRotatingJSONLStoreRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	s, err := NewRotatingJSONLStore(path, 1, 3, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	rec := sample("big", "core", "2025-10", time.Now())
	rec.Assignments = model.Assignments{}
	for i := 0; i < 2000; i++ {
		rec.Assignments[fmt.Sprintf("2025-10-%04d", i)] = []string{"engineer-with-a-long-identifier"}
	}
	for i := 0; i < 30; i++ {
		require.NoError(t, s.Append(context.Background(), rec))
	}
	files, err := filepath.Glob(filepath.Join(filepath.Dir(path), "runs*.jsonl"))
	require.NoError(t, err)
	assert.Greater(t, len(files), 1)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	c := Config{Path: filepath.Join(dir, "runs.jsonl")}
	c.SetDefaults()
	assert.Equal(t, "jsonl", c.Backend)
	s, err := Open(c)
	require.NoError(t, err)
	assert.IsType(t, &RotatingJSONLStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(Config{Backend: "none"})
	require.NoError(t, err)
	assert.Equal(t, NopStore{}, s)

	_, err = Open(Config{Backend: "kafka"})
	assert.Error(t, err)
}
