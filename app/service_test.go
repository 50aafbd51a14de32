package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/oncall/core/assignment"
	"github.com/kilianp07/oncall/core/logger"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/schedule"
	"github.com/kilianp07/oncall/core/store"
	"github.com/kilianp07/oncall/internal/eventbus"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []schedule.Committed
}

func (p *recordingPublisher) Publish(ev schedule.Committed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Run(context.Context, *eventbus.Bus[schedule.Committed]) {}
func (p *recordingPublisher) Disconnect()                                            {}

func (p *recordingPublisher) teams() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Team
	}
	return out
}

type brokenTeamStore struct {
	*store.MemoryStore
	broken string
}

func (s brokenTeamStore) ReplaceAssignments(ctx context.Context, teamID string, m model.Month, a model.Assignments) error {
	if teamID == s.broken {
		return errors.New("disk full")
	}
	return s.MemoryStore.ReplaceAssignments(ctx, teamID, m, a)
}

func newGenerateService(t *testing.T, st store.Store, pub publisher) *Service {
	t.Helper()
	ctx := context.Background()
	for _, id := range []string{"alpha", "beta", "zeta"} {
		require.NoError(t, st.SaveTeam(ctx, model.Team{ID: id, ShiftsPerDay: 1, BaseGroups: model.Groups{}}))
		require.NoError(t, st.AddEngineer(ctx, model.Engineer{ID: id + "-1", Team: id}))
	}
	bus := eventbus.New[schedule.Committed](eventbus.DefaultBuffer)
	return &Service{
		Schedule: schedule.NewService(st, schedule.Options{
			Defaults: assignment.Defaults{ShiftsPerDay: 1, MaxShifts: 1},
			Bus:      bus,
		}),
		store:     st,
		bus:       bus,
		publisher: pub,
		log:       logger.Nop{},
	}
}

func TestGeneratePublishesEveryTeam(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newGenerateService(t, store.NewMemoryStore(), pub)

	out, err := svc.Generate(context.Background(), model.MustMonth("2025-10"))
	require.NoError(t, err)
	assert.Len(t, out.Teams, 3)
	assert.ElementsMatch(t, []string{"alpha", "beta", "zeta"}, pub.teams())
}

func TestGeneratePublishesCommittedTeamsOnFailure(t *testing.T) {
	pub := &recordingPublisher{}
	st := brokenTeamStore{MemoryStore: store.NewMemoryStore(), broken: "zeta"}
	svc := newGenerateService(t, st, pub)

	_, err := svc.Generate(context.Background(), model.MustMonth("2025-10"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.ElementsMatch(t, []string{"alpha", "beta"}, pub.teams())
}

func TestGenerateWithoutPublisher(t *testing.T) {
	svc := newGenerateService(t, store.NewMemoryStore(), nil)

	out, err := svc.Generate(context.Background(), model.MustMonth("2025-10"))
	require.NoError(t, err)
	assert.Len(t, out.Teams, 3)
}
