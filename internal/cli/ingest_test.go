package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/molbuild/internal/mol"
)

func TestReadTasksJSONLines(t *testing.T) {
	input := `{"task_id":"mol-1","formula":"H2O","state":"successful","last_updated":"2024-01-01T00:00:00Z","output":{"energy":-76.4}}

{"task_id":42,"formula":"CH4","state":"failed","last_updated":"2024-01-02T03:04:05.5Z"}
`
	tasks, err := ReadTasks(strings.NewReader(input), FormatJSONLines)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "mol-1", tasks[0].TaskID)
	assert.Equal(t, "H2O", tasks[0].Formula)
	assert.Equal(t, "successful", tasks[0].State)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), tasks[0].LastUpdated)
	energy, ok := mol.Get(tasks[0].Doc, "output.energy")
	require.True(t, ok)
	assert.Equal(t, -76.4, energy)

	assert.Equal(t, "42", tasks[1].TaskID)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 500_000_000, time.UTC), tasks[1].LastUpdated)
}

func TestReadTasksJSONArray(t *testing.T) {
	input := `[
  {"task_id":"mol-1","formula":"H2O","state":"successful","last_updated":"2024-01-01T00:00:00Z"},
  {"task_id":"mol-2","formula":"H2O","state":"successful","last_updated":"2024-01-01T00:00:00Z"}
]`
	tasks, err := ReadTasks(strings.NewReader(input), FormatJSONLines)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestReadTasksYAML(t *testing.T) {
	input := `
- task_id: mol-1
  formula: H2O
  state: successful
  last_updated: 2024-01-01T00:00:00Z
  output:
    energy: -76
---
task_id: mol-2
formula: H2O
state: successful
last_updated: "2024-01-03T00:00:00Z"
`
	tasks, err := ReadTasks(strings.NewReader(input), FormatYAML)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "mol-1", tasks[0].TaskID)
	energy, _ := mol.Get(tasks[0].Doc, "output.energy")
	assert.Equal(t, int64(-76), energy)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), tasks[1].LastUpdated)
}

func TestReadTasksErrors(t *testing.T) {
	tests := []struct {
		name, format, input, want string
	}{
		{"bad json", FormatJSONLines, "{\"task_id\":\n", "line 1"},
		{"missing id", FormatJSONLines, `{"formula":"H2O","state":"successful","last_updated":"2024-01-01T00:00:00Z"}`, "task_id is required"},
		{"bad id type", FormatJSONLines, `{"task_id":true}`, "task_id is bool"},
		{"missing formula", FormatJSONLines, `{"task_id":"mol-1","state":"successful","last_updated":"2024-01-01T00:00:00Z"}`, "formula is required"},
		{"bad time", FormatJSONLines, `{"task_id":"mol-1","formula":"H2O","state":"successful","last_updated":"yesterday"}`, "last_updated"},
		{"duplicate", FormatJSONLines, strings.Repeat(`{"task_id":"mol-1","formula":"H2O","state":"successful","last_updated":"2024-01-01T00:00:00Z"}`+"\n", 2), "duplicate task_id mol-1"},
		{"yaml scalar", FormatYAML, "42\n", "want a list of task records"},
		{"unknown format", "csv", "", "unsupported task format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTasks(strings.NewReader(tt.input), tt.format)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadTaskFileExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := ReadTaskFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported task file")
}

func TestIngestCommandBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0o644))

	out, _, err := execute(t, "--db", filepath.Join(dir, "molbuild.db"), "--format", "json", "ingest", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	resp, _ := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeIngest, resp.Error.Code)
}
