package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roster = `
teams:
  - id: CORE
    shifts_per_day: 1
    base_groups: [[EngB], [EngA]]
engineers:
  - id: EngA
    team: CORE
    max_shifts: 1
    preferences: {"2025-10": ["2025-10-04"]}
  - id: EngB
    team: CORE
    max_shifts: 1
    preferences: {"2025-10": ["2025-10-11"]}
holidays:
  - 2025-10-01
`

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "store:\n  type: sqlite\n  conf:\n    path: " + filepath.Join(dir, "oncall.db") + "\n" +
		"run_log:\n  backend: jsonl\n  path: " + filepath.Join(dir, "runs.jsonl") + "\n" +
		"logging:\n  level: error\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roster.yaml"), []byte(roster), 0o644))
	return dir
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestImportGenerateExport(t *testing.T) {
	dir := setup(t)
	cfg := filepath.Join(dir, "config.yaml")

	out := execute(t, "import", filepath.Join(dir, "roster.yaml"), "-c", cfg)
	assert.Contains(t, out, "imported 1 team(s), 2 engineer(s), 1 holiday(s)")

	out = execute(t, "days", "2025-10", "-c", cfg)
	lines := strings.Fields(out)
	require.Len(t, lines, 9)
	assert.Equal(t, "2025-10-01", lines[0], "holidays are on-call days")

	out = execute(t, "priority", "CORE", "2025-10", "-c", cfg)
	var groups [][]string
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	assert.Equal(t, [][]string{{"EngA"}, {"EngB"}}, groups)

	out = execute(t, "generate", "2025-10", "-c", cfg)
	var outcome struct {
		Combined map[string][]string `json:"combined"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	assert.Equal(t, []string{"EngA"}, outcome.Combined["2025-10-04"])
	assert.Equal(t, []string{"EngB"}, outcome.Combined["2025-10-11"])

	out = execute(t, "export", "CORE", "2025-10", "-f", "csv", "-c", cfg)
	assert.Contains(t, out, "CORE,2025-10-04,1,EngA\n")
	assert.Contains(t, out, "CORE,2025-10-11,1,EngB\n")

	chart := filepath.Join(dir, "chart.html")
	execute(t, "export", "CORE", "2025-10", "-f", "html", "-o", chart, "-c", cfg)
	html, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Contains(t, string(html), "CORE on-call 2025-10")

	out = execute(t, "whatif", "CORE", "2025-10", "EngB", "-p", "2025-10-04,2025-10-05", "-m", "1", "-c", cfg)
	var dates []string
	require.NoError(t, json.Unmarshal([]byte(out), &dates))
	assert.Equal(t, []string{"2025-10-05"}, dates)
}

func TestMonthArgRejectsBadMonth(t *testing.T) {
	_, err := monthArg("2025-1")
	assert.Error(t, err)
}
