package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/oncall/core/model"
)

// MemoryStore keeps everything in process memory. Values are cloned on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	teams       map[string]model.Team
	engineers   map[string]model.Engineer
	holidays    map[string]model.Holiday
	snapshots   map[string]map[model.Month]model.Groups
	assignments map[string]map[model.Month]model.Assignments
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		teams:       map[string]model.Team{},
		engineers:   map[string]model.Engineer{},
		holidays:    map[string]model.Holiday{},
		snapshots:   map[string]map[model.Month]model.Groups{},
		assignments: map[string]map[model.Month]model.Assignments{},
	}
}

func (s *MemoryStore) Team(_ context.Context, id string) (model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return model.Team{}, fmt.Errorf("%w: %s", model.ErrUnknownTeam, id)
	}
	return t.Clone(), nil
}

func (s *MemoryStore) Teams(_ context.Context) ([]model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Team, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SaveTeam(_ context.Context, t model.Team) error {
	if t.BaseGroups == nil {
		t.BaseGroups = model.Groups{}
	}
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, existed := s.teams[t.ID]
	s.teams[t.ID] = t.Clone()
	if existed && !prev.BaseGroups.Equal(t.BaseGroups) {
		delete(s.snapshots, t.ID)
	}
	return nil
}

func (s *MemoryStore) SetBaseGroups(_ context.Context, teamID string, groups model.Groups) error {
	if err := groups.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrUnknownTeam, teamID)
	}
	t.BaseGroups = groups.Clone()
	s.teams[teamID] = t
	delete(s.snapshots, teamID)
	return nil
}

func (s *MemoryStore) Engineer(_ context.Context, id string) (model.Engineer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.engineers[id]
	if !ok {
		return model.Engineer{}, fmt.Errorf("%w: %s", model.ErrUnknownEngineer, id)
	}
	return e.Clone(), nil
}

func (s *MemoryStore) Engineers(_ context.Context, teamID string) ([]model.Engineer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.teams[teamID]; !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownTeam, teamID)
	}
	var out []model.Engineer
	for _, e := range s.engineers {
		if e.Team == teamID {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) AddEngineer(_ context.Context, e model.Engineer) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.engineers {
		if model.SameID(id, e.ID) {
			return fmt.Errorf("%w: %s (case-insensitive)", model.ErrDuplicateEngineer, e.ID)
		}
	}
	t, ok := s.teams[e.Team]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrUnknownTeam, e.Team)
	}
	s.engineers[e.ID] = e.Clone()
	if _, grouped := t.BaseGroups.Members()[e.ID]; !grouped {
		t.BaseGroups = t.BaseGroups.WithMember(e.ID)
		s.teams[t.ID] = t
	}
	delete(s.snapshots, t.ID)
	return nil
}

func (s *MemoryStore) UpdateEngineer(_ context.Context, e model.Engineer) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.engineers[e.ID]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrUnknownEngineer, e.ID)
	}
	if prev.Team != e.Team {
		dst, ok := s.teams[e.Team]
		if !ok {
			return fmt.Errorf("%w: %s", model.ErrUnknownTeam, e.Team)
		}
		if src, ok := s.teams[prev.Team]; ok {
			src.BaseGroups = src.BaseGroups.Without(e.ID)
			s.teams[src.ID] = src
			delete(s.snapshots, src.ID)
		}
		dst.BaseGroups = dst.BaseGroups.WithMember(e.ID)
		s.teams[dst.ID] = dst
		delete(s.snapshots, dst.ID)
	}
	s.engineers[e.ID] = e.Clone()
	return nil
}

func (s *MemoryStore) DeleteEngineer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.engineers[id]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrUnknownEngineer, id)
	}
	delete(s.engineers, id)
	if t, ok := s.teams[e.Team]; ok {
		t.BaseGroups = t.BaseGroups.Without(id)
		s.teams[t.ID] = t
		delete(s.snapshots, t.ID)
	}
	return nil
}

func (s *MemoryStore) Holidays(_ context.Context) ([]model.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Holiday, 0, len(s.holidays))
	for _, h := range s.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *MemoryStore) SaveHoliday(_ context.Context, h model.Holiday) error {
	if _, err := model.ParseDate(h.Date); err != nil {
		return err
	}
	s.mu.Lock()
	s.holidays[h.Date] = h
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Snapshot(_ context.Context, teamID string, m model.Month) (model.Groups, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.snapshots[teamID][m]
	if !ok {
		return nil, false, nil
	}
	return g.Clone(), true, nil
}

func (s *MemoryStore) LatestSnapshotBefore(_ context.Context, teamID string, m model.Month) (model.Month, model.Groups, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best  model.Month
		found bool
	)
	for month := range s.snapshots[teamID] {
		if month.Before(m) && (!found || month.After(best)) {
			best, found = month, true
		}
	}
	if !found {
		return model.Month{}, nil, false, nil
	}
	return best, s.snapshots[teamID][best].Clone(), true, nil
}

func (s *MemoryStore) PutSnapshot(_ context.Context, teamID string, m model.Month, g model.Groups) (model.Groups, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byMonth, ok := s.snapshots[teamID]
	if !ok {
		byMonth = map[model.Month]model.Groups{}
		s.snapshots[teamID] = byMonth
	}
	if existing, ok := byMonth[m]; ok {
		return existing.Clone(), false, nil
	}
	byMonth[m] = g.Clone()
	return g.Clone(), true, nil
}

func (s *MemoryStore) ReplaceAssignments(_ context.Context, teamID string, m model.Month, a model.Assignments) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[teamID]; !ok {
		return fmt.Errorf("%w: %s", model.ErrUnknownTeam, teamID)
	}
	byMonth, ok := s.assignments[teamID]
	if !ok {
		byMonth = map[model.Month]model.Assignments{}
		s.assignments[teamID] = byMonth
	}
	byMonth[m] = a.Clone()
	return nil
}

func (s *MemoryStore) Assignments(_ context.Context, teamID string, m model.Month) (model.Assignments, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.teams[teamID]; !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownTeam, teamID)
	}
	a, ok := s.assignments[teamID][m]
	if !ok {
		return model.Assignments{}, nil
	}
	return a.Clone(), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
