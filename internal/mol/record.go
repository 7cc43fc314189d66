package mol

import (
	"fmt"
	"strconv"
)

// TaskFromRecord lifts the indexed columns out of a task record. The
// record itself becomes the task document.
func TaskFromRecord(rec map[string]any) (Task, error) {
	var t Task

	switch id := rec["task_id"].(type) {
	case string:
		t.TaskID = id
	case int64:
		t.TaskID = strconv.FormatInt(id, 10)
	case nil:
	default:
		return t, fmt.Errorf("task_id is %T, want string or integer", id)
	}
	if t.TaskID == "" {
		return t, fmt.Errorf("task_id is required")
	}

	var err error
	if t.Formula, err = requiredString(rec, "formula"); err != nil {
		return t, fmt.Errorf("task %s: %w", t.TaskID, err)
	}
	if t.State, err = requiredString(rec, "state"); err != nil {
		return t, fmt.Errorf("task %s: %w", t.TaskID, err)
	}
	lu, err := requiredString(rec, "last_updated")
	if err != nil {
		return t, fmt.Errorf("task %s: %w", t.TaskID, err)
	}
	if t.LastUpdated, err = ParseTime(lu); err != nil {
		return t, fmt.Errorf("task %s: last_updated: %w", t.TaskID, err)
	}

	t.Doc = rec
	return t, nil
}

func requiredString(rec map[string]any, field string) (string, error) {
	v, ok := rec[field]
	if !ok || v == nil {
		return "", fmt.Errorf("%s is required", field)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s is %T, want string", field, v)
	}
	if s == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	return s, nil
}
