package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/molbuild/internal/mol"
	"github.com/roach88/molbuild/internal/testutil"
)

// createTestStore creates a new SQLite store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(DriverSQLite, path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTask creates a water task with minimal required fields.
func createTestTask(id, formula, state string, day int) mol.Task {
	task := testutil.Task(testutil.TaskSpec{
		ID:          id,
		Formula:     formula,
		JobType:     "sp",
		State:       state,
		LastUpdated: testutil.Day(day),
		Energy:      testutil.Energy(-76.4),
		Initial:     testutil.Water(0.93),
	})
	return task
}

// createTestDocument creates an assembled document for the given tasks.
func createTestDocument(id string, updated time.Time, taskIDs ...string) *mol.Document {
	types := make(map[string]string, len(taskIDs))
	for _, tid := range taskIDs {
		types[tid] = "Single Point"
	}
	return &mol.Document{
		ID:        id,
		CreatedAt: updated.Add(-time.Hour),
		UpdatedAt: updated,
		TaskIDs:   taskIDs,
		TaskTypes: types,
		Fields: map[string]any{
			"structure":      testutil.Water(0.93),
			"energy":         -76.4,
			"formula_pretty": "H2O",
		},
	}
}
