// Package store provides persistent backends for the roster store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/oncall/core/factory"
	"github.com/kilianp07/oncall/core/model"
	corestore "github.com/kilianp07/oncall/core/store"
)

func init() {
	_ = corestore.Register("sqlite", func(conf map[string]any) (corestore.Store, error) {
		var c SQLiteConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSQLiteStore(c.Path)
	})
}

// SQLiteConfig is the "conf" block of a sqlite store.
type SQLiteConfig struct {
	Path string `json:"path"`
}

const schema = `
CREATE TABLE IF NOT EXISTS teams (
    id TEXT PRIMARY KEY,
    base_groups TEXT NOT NULL,
    shifts_per_day INTEGER NOT NULL,
    shift_overrides TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS engineers (
    id TEXT PRIMARY KEY,
    id_fold TEXT NOT NULL UNIQUE,
    team TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    max_shifts INTEGER,
    preferences TEXT NOT NULL,
    consecutive_pref TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS holidays (
    date TEXT PRIMARY KEY,
    note TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS snapshots (
    team TEXT NOT NULL,
    month_idx INTEGER NOT NULL,
    groups TEXT NOT NULL,
    PRIMARY KEY(team, month_idx)
);
CREATE TABLE IF NOT EXISTS assignments (
    team TEXT NOT NULL,
    month TEXT NOT NULL,
    date TEXT NOT NULL,
    engineers TEXT NOT NULL,
    PRIMARY KEY(team, date)
);`

// SQLiteStore persists rosters, snapshots and assignments in SQLite.
// Multi-row mutations run in a single transaction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite store: empty path")
	}
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection serializes writers and keeps transactions simple.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func monthIndex(m model.Month) int { return m.Year*12 + int(m.Month) - 1 }

func monthFromIndex(i int) model.Month {
	return model.Month{Year: i / 12, Month: time.Month(i%12 + 1)}
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

func getTeam(ctx context.Context, q querier, id string) (model.Team, error) {
	var groups, overrides string
	t := model.Team{ID: id}
	err := q.QueryRowContext(ctx,
		`SELECT base_groups, shifts_per_day, shift_overrides FROM teams WHERE id = ?`, id).
		Scan(&groups, &t.ShiftsPerDay, &overrides)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Team{}, fmt.Errorf("%w: %s", model.ErrUnknownTeam, id)
	}
	if err != nil {
		return model.Team{}, err
	}
	if err := json.Unmarshal([]byte(groups), &t.BaseGroups); err != nil {
		return model.Team{}, fmt.Errorf("decode groups of %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(overrides), &t.ShiftOverrides); err != nil {
		return model.Team{}, fmt.Errorf("decode overrides of %s: %w", id, err)
	}
	if t.BaseGroups == nil {
		t.BaseGroups = model.Groups{}
	}
	return t, nil
}

func putTeam(ctx context.Context, q querier, t model.Team) error {
	groups, err := encode(t.BaseGroups)
	if err != nil {
		return err
	}
	overrides, err := encode(t.ShiftOverrides)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `INSERT INTO teams (id, base_groups, shifts_per_day, shift_overrides)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            base_groups = excluded.base_groups,
            shifts_per_day = excluded.shifts_per_day,
            shift_overrides = excluded.shift_overrides`,
		t.ID, groups, t.ShiftsPerDay, overrides)
	return err
}

func clearSnapshots(ctx context.Context, q querier, teamID string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM snapshots WHERE team = ?`, teamID)
	return err
}

func (s *SQLiteStore) Team(ctx context.Context, id string) (model.Team, error) {
	return getTeam(ctx, s.db, id)
}

func (s *SQLiteStore) Teams(ctx context.Context) ([]model.Team, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM teams ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()
	out := make([]model.Team, 0, len(ids))
	for _, id := range ids {
		t, err := getTeam(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *SQLiteStore) SaveTeam(ctx context.Context, t model.Team) error {
	if t.BaseGroups == nil {
		t.BaseGroups = model.Groups{}
	}
	if err := t.Validate(); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		prev, err := getTeam(ctx, tx, t.ID)
		existed := err == nil
		if err != nil && !errors.Is(err, model.ErrUnknownTeam) {
			return err
		}
		if err := putTeam(ctx, tx, t); err != nil {
			return err
		}
		if existed && !prev.BaseGroups.Equal(t.BaseGroups) {
			return clearSnapshots(ctx, tx, t.ID)
		}
		return nil
	})
}

func (s *SQLiteStore) SetBaseGroups(ctx context.Context, teamID string, groups model.Groups) error {
	if err := groups.Validate(); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTeam(ctx, tx, teamID)
		if err != nil {
			return err
		}
		t.BaseGroups = groups.Clone()
		if err := putTeam(ctx, tx, t); err != nil {
			return err
		}
		return clearSnapshots(ctx, tx, teamID)
	})
}

const engineerColumns = `id, team, email, max_shifts, preferences, consecutive_pref`

type scanner interface {
	Scan(dest ...any) error
}

func scanEngineer(row scanner) (model.Engineer, error) {
	var (
		e     model.Engineer
		limit sql.NullInt64
		prefs string
		pref  string
	)
	if err := row.Scan(&e.ID, &e.Team, &e.Email, &limit, &prefs, &pref); err != nil {
		return model.Engineer{}, err
	}
	if limit.Valid {
		e.MaxShifts = model.Shifts(int(limit.Int64))
	}
	if err := json.Unmarshal([]byte(prefs), &e.Preferences); err != nil {
		return model.Engineer{}, fmt.Errorf("decode preferences of %s: %w", e.ID, err)
	}
	e.ConsecutivePref = model.ConsecutivePref(pref)
	return e, nil
}

func getEngineer(ctx context.Context, q querier, id string) (model.Engineer, error) {
	e, err := scanEngineer(q.QueryRowContext(ctx, `SELECT `+engineerColumns+` FROM engineers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Engineer{}, fmt.Errorf("%w: %s", model.ErrUnknownEngineer, id)
	}
	return e, err
}

func putEngineer(ctx context.Context, q querier, e model.Engineer) error {
	prefs, err := encode(e.Preferences)
	if err != nil {
		return err
	}
	var limit sql.NullInt64
	if e.MaxShifts != nil {
		limit = sql.NullInt64{Int64: int64(*e.MaxShifts), Valid: true}
	}
	_, err = q.ExecContext(ctx, `INSERT INTO engineers (id, id_fold, team, email, max_shifts, preferences, consecutive_pref)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            team = excluded.team,
            email = excluded.email,
            max_shifts = excluded.max_shifts,
            preferences = excluded.preferences,
            consecutive_pref = excluded.consecutive_pref`,
		e.ID, model.FoldID(e.ID), e.Team, e.Email, limit, prefs, string(e.ConsecutivePref))
	return err
}

func (s *SQLiteStore) Engineer(ctx context.Context, id string) (model.Engineer, error) {
	return getEngineer(ctx, s.db, id)
}

func (s *SQLiteStore) Engineers(ctx context.Context, teamID string) ([]model.Engineer, error) {
	if _, err := getTeam(ctx, s.db, teamID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+engineerColumns+` FROM engineers WHERE team = ? ORDER BY id`, teamID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Engineer
	for rows.Next() {
		e, err := scanEngineer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddEngineer(ctx context.Context, e model.Engineer) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM engineers WHERE id_fold = ?`, model.FoldID(e.ID)).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s (case-insensitive)", model.ErrDuplicateEngineer, e.ID)
		}
		t, err := getTeam(ctx, tx, e.Team)
		if err != nil {
			return err
		}
		if err := putEngineer(ctx, tx, e); err != nil {
			return err
		}
		if _, grouped := t.BaseGroups.Members()[e.ID]; !grouped {
			t.BaseGroups = t.BaseGroups.WithMember(e.ID)
			if err := putTeam(ctx, tx, t); err != nil {
				return err
			}
		}
		return clearSnapshots(ctx, tx, t.ID)
	})
}

func (s *SQLiteStore) UpdateEngineer(ctx context.Context, e model.Engineer) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		prev, err := getEngineer(ctx, tx, e.ID)
		if err != nil {
			return err
		}
		if prev.Team != e.Team {
			dst, err := getTeam(ctx, tx, e.Team)
			if err != nil {
				return err
			}
			if src, err := getTeam(ctx, tx, prev.Team); err == nil {
				src.BaseGroups = src.BaseGroups.Without(e.ID)
				if err := putTeam(ctx, tx, src); err != nil {
					return err
				}
				if err := clearSnapshots(ctx, tx, src.ID); err != nil {
					return err
				}
			}
			dst.BaseGroups = dst.BaseGroups.WithMember(e.ID)
			if err := putTeam(ctx, tx, dst); err != nil {
				return err
			}
			if err := clearSnapshots(ctx, tx, dst.ID); err != nil {
				return err
			}
		}
		return putEngineer(ctx, tx, e)
	})
}

func (s *SQLiteStore) DeleteEngineer(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		e, err := getEngineer(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM engineers WHERE id = ?`, id); err != nil {
			return err
		}
		t, err := getTeam(ctx, tx, e.Team)
		if errors.Is(err, model.ErrUnknownTeam) {
			return nil
		}
		if err != nil {
			return err
		}
		t.BaseGroups = t.BaseGroups.Without(id)
		if err := putTeam(ctx, tx, t); err != nil {
			return err
		}
		return clearSnapshots(ctx, tx, t.ID)
	})
}

func (s *SQLiteStore) Holidays(ctx context.Context) ([]model.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, note FROM holidays ORDER BY date`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := []model.Holiday{}
	for rows.Next() {
		var h model.Holiday
		if err := rows.Scan(&h.Date, &h.Note); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveHoliday(ctx context.Context, h model.Holiday) error {
	if _, err := model.ParseDate(h.Date); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO holidays (date, note) VALUES (?, ?)
        ON CONFLICT(date) DO UPDATE SET note = excluded.note`, h.Date, h.Note)
	return err
}

func decodeGroups(raw string) (model.Groups, error) {
	var g model.Groups
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if g == nil {
		g = model.Groups{}
	}
	return g, nil
}

func (s *SQLiteStore) Snapshot(ctx context.Context, teamID string, m model.Month) (model.Groups, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT groups FROM snapshots WHERE team = ? AND month_idx = ?`,
		teamID, monthIndex(m)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	g, err := decodeGroups(raw)
	return g, err == nil, err
}

func (s *SQLiteStore) LatestSnapshotBefore(ctx context.Context, teamID string, m model.Month) (model.Month, model.Groups, bool, error) {
	var (
		idx int
		raw string
	)
	err := s.db.QueryRowContext(ctx, `SELECT month_idx, groups FROM snapshots
        WHERE team = ? AND month_idx < ? ORDER BY month_idx DESC LIMIT 1`,
		teamID, monthIndex(m)).Scan(&idx, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Month{}, nil, false, nil
	}
	if err != nil {
		return model.Month{}, nil, false, err
	}
	g, err := decodeGroups(raw)
	if err != nil {
		return model.Month{}, nil, false, err
	}
	return monthFromIndex(idx), g, true, nil
}

func (s *SQLiteStore) PutSnapshot(ctx context.Context, teamID string, m model.Month, g model.Groups) (model.Groups, bool, error) {
	raw, err := encode(g.Clone())
	if err != nil {
		return nil, false, err
	}
	var (
		stored  model.Groups
		created bool
	)
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO snapshots (team, month_idx, groups) VALUES (?, ?, ?)
            ON CONFLICT(team, month_idx) DO NOTHING`, teamID, monthIndex(m), raw)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		created = n == 1
		var cur string
		if err := tx.QueryRowContext(ctx, `SELECT groups FROM snapshots WHERE team = ? AND month_idx = ?`,
			teamID, monthIndex(m)).Scan(&cur); err != nil {
			return err
		}
		stored, err = decodeGroups(cur)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (s *SQLiteStore) ReplaceAssignments(ctx context.Context, teamID string, m model.Month, a model.Assignments) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getTeam(ctx, tx, teamID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE team = ? AND month = ?`, teamID, m.String()); err != nil {
			return err
		}
		for _, d := range a.Days() {
			ids := a[d]
			if ids == nil {
				ids = []string{}
			}
			raw, err := encode(ids)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO assignments (team, month, date, engineers) VALUES (?, ?, ?, ?)
                ON CONFLICT(team, date) DO UPDATE SET month = excluded.month, engineers = excluded.engineers`,
				teamID, m.String(), d, raw); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Assignments(ctx context.Context, teamID string, m model.Month) (model.Assignments, error) {
	if _, err := getTeam(ctx, s.db, teamID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT date, engineers FROM assignments WHERE team = ? AND month = ? ORDER BY date`,
		teamID, m.String())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := model.Assignments{}
	for rows.Next() {
		var d, raw string
		if err := rows.Scan(&d, &raw); err != nil {
			return nil, err
		}
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, fmt.Errorf("decode assignments of %s: %w", d, err)
		}
		if ids == nil {
			ids = []string{}
		}
		out[d] = ids
	}
	return out, rows.Err()
}
