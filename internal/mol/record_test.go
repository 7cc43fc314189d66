package mol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskFromRecord(t *testing.T) {
	rec := map[string]any{
		"task_id":      int64(42),
		"formula":      "H2O",
		"state":        "successful",
		"last_updated": "2024-01-03T00:00:00Z",
		"output":       map[string]any{"energy": -76.4},
	}
	task, err := TaskFromRecord(rec)
	require.NoError(t, err)

	assert.Equal(t, "42", task.TaskID)
	assert.Equal(t, "H2O", task.Formula)
	assert.Equal(t, "successful", task.State)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), task.LastUpdated)
	assert.Equal(t, rec, task.Doc)
}

func TestTaskFromRecordErrors(t *testing.T) {
	valid := func() map[string]any {
		return map[string]any{
			"task_id": "mol-1", "formula": "H2O", "state": "successful",
			"last_updated": "2024-01-03T00:00:00Z",
		}
	}
	tests := []struct {
		name   string
		mutate func(map[string]any)
		want   string
	}{
		{"no id", func(r map[string]any) { delete(r, "task_id") }, "task_id is required"},
		{"empty id", func(r map[string]any) { r["task_id"] = "" }, "task_id is required"},
		{"float id", func(r map[string]any) { r["task_id"] = 1.5 }, "task_id is float64"},
		{"no state", func(r map[string]any) { delete(r, "state") }, "state is required"},
		{"formula type", func(r map[string]any) { r["formula"] = int64(1) }, "formula is int64, want string"},
		{"bad time", func(r map[string]any) { r["last_updated"] = "soon" }, "last_updated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid()
			tt.mutate(rec)
			_, err := TaskFromRecord(rec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
