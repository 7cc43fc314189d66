package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/water_opt_and_sp.yaml")
	require.NoError(t, err)

	assert.Equal(t, "water_opt_and_sp", s.Name)
	assert.Equal(t, filepath.Join("testdata", "rules", "water.yaml"), s.Rules)
	assert.True(t, s.Start.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)), "start = %v", s.Start)
	require.Len(t, s.Passes, 1)
	require.Len(t, s.Passes[0].Tasks, 2)

	// YAML numbers are normalized to the document value set.
	output := s.Passes[0].Tasks[0]["output"].(map[string]any)
	assert.Equal(t, -76.4, output["energy"])
	structure := output["initial_molecule"].(map[string]any)
	assert.Equal(t, int64(0), structure["charge"])

	require.NotNil(t, s.Passes[0].Expect)
	require.NotNil(t, s.Passes[0].Expect.Written)
	assert.Equal(t, 1, *s.Passes[0].Expect.Written)
	assert.Nil(t, s.Passes[0].Expect.Unchanged)
	assert.Len(t, s.Assertions, 4)
}

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalTask = `
passes:
  - tasks:
      - {task_id: mol-1, formula: H2O, state: successful, last_updated: "2024-01-01T00:00:00Z"}
`

func TestLoadScenarioErrors(t *testing.T) {
	tests := []struct {
		name, content, want string
	}{
		{"unknown field", "name: x\ndescription: y\nassertion: []\n", "field assertion not found"},
		{"missing name", "description: y\n" + minimalTask + "assertions: [{type: molecule_count, count: 0}]\n", "name is required"},
		{"missing description", "name: x\n" + minimalTask + "assertions: [{type: molecule_count, count: 0}]\n", "description is required"},
		{"no passes", "name: x\ndescription: y\nassertions: [{type: molecule_count, count: 0}]\n", "passes list is required"},
		{"no assertions", "name: x\ndescription: y\n" + minimalTask, "assertions list is required"},
		{"bad task", "name: x\ndescription: y\npasses: [{tasks: [{task_id: mol-1}]}]\nassertions: [{type: molecule_count}]\n", "passes[0].tasks[0]: task mol-1: formula is required"},
		{"bad query", "name: x\ndescription: y\nquery: {doc: z}\n" + minimalTask + "assertions: [{type: molecule_count}]\n", "unsupported field"},
		{"missing rules", "name: x\ndescription: y\nrules: nope.yaml\n" + minimalTask + "assertions: [{type: molecule_count}]\n", "rules file not found"},
		{"bad status", "name: x\ndescription: y\npasses: [{expect: {status: done}}]\nassertions: [{type: molecule_count}]\n", "unknown status"},
		{"unknown assertion", "name: x\ndescription: y\n" + minimalTask + "assertions: [{type: trace_contains}]\n", "unknown assertion type"},
		{"molecule without id", "name: x\ndescription: y\n" + minimalTask + "assertions: [{type: molecule}]\n", "id is required for molecule"},
		{"bad expect path", "name: x\ndescription: y\n" + minimalTask + "assertions: [{type: molecule, id: m, expect: {\"a..b\": 1}}]\n", "empty segment"},
		{"negative count", "name: x\ndescription: y\n" + minimalTask + "assertions: [{type: molecule_count, count: -1}]\n", "count must be non-negative"},
		{"bad checkpoint", "name: x\ndescription: y\n" + minimalTask + "assertions: [{type: checkpoint, checkpoint: soon}]\n", "RFC 3339"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
