package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/oncall/core/model"
)

// Fixture is a roster export: teams with their grouping, engineers and
// holidays. It is the format of the import command and of test scenarios.
type Fixture struct {
	Teams     []model.Team     `json:"teams" yaml:"teams"`
	Engineers []model.Engineer `json:"engineers" yaml:"engineers"`
	Holidays  []model.Holiday  `json:"holidays" yaml:"holidays"`
}

// LoadFixture reads a YAML or JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return DecodeFixture(f, strings.TrimPrefix(filepath.Ext(path), "."))
}

// DecodeFixture decodes a fixture in the given format ("yaml", "yml", "json").
func DecodeFixture(r io.Reader, format string) (*Fixture, error) {
	var fx Fixture
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&fx); err != nil {
			return nil, fmt.Errorf("decode fixture: %w", err)
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&fx); err != nil {
			return nil, fmt.Errorf("decode fixture: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported fixture format: %s", format)
	}
	return &fx, nil
}

// Apply writes the fixture into s: teams first, then engineers, then holidays.
// Engineers already present are updated rather than rejected.
func (fx *Fixture) Apply(ctx context.Context, s Rosters) error {
	for _, t := range fx.Teams {
		if err := s.SaveTeam(ctx, t); err != nil {
			return fmt.Errorf("team %s: %w", t.ID, err)
		}
	}
	for _, e := range fx.Engineers {
		if _, err := s.Engineer(ctx, e.ID); err == nil {
			if err := s.UpdateEngineer(ctx, e); err != nil {
				return fmt.Errorf("engineer %s: %w", e.ID, err)
			}
			continue
		}
		if err := s.AddEngineer(ctx, e); err != nil {
			return fmt.Errorf("engineer %s: %w", e.ID, err)
		}
	}
	for _, h := range fx.Holidays {
		if err := s.SaveHoliday(ctx, h); err != nil {
			return fmt.Errorf("holiday %s: %w", h.Date, err)
		}
	}
	return nil
}
