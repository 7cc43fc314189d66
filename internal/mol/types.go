package mol

import "time"

// Reserved top-level document keys. Rules may not target these.
const (
	KeyID        = "id"
	KeyCreatedAt = "created_at"
	KeyUpdatedAt = "updated_at"
	KeyTaskIDs   = "task_ids"
	KeyOrigins   = "origins"
	KeyTaskTypes = "task_types"
	KeyBuiltAt   = "_bt"
)

// ReservedKeys lists the document keys owned by the assembler.
var ReservedKeys = map[string]bool{
	KeyID:        true,
	KeyCreatedAt: true,
	KeyUpdatedAt: true,
	KeyTaskIDs:   true,
	KeyOrigins:   true,
	KeyTaskTypes: true,
	KeyBuiltAt:   true,
}

// Task is one raw computation record read from the task store.
// TaskType is empty until the record has been classified.
type Task struct {
	TaskID      string         `json:"task_id"`
	TaskType    string         `json:"task_type,omitempty"`
	Formula     string         `json:"formula"`
	State       string         `json:"state"`
	LastUpdated time.Time      `json:"last_updated"`
	Doc         map[string]any `json:"doc"`
}

// Candidate is one extracted property value: a single (task, rule) pair.
type Candidate struct {
	Value       any       `json:"value"`
	TaskType    string    `json:"task_type"`
	TaskID      string    `json:"task_id"`
	Quality     float64   `json:"quality_score"`
	Track       bool      `json:"track"`
	Aggregate   bool      `json:"aggregate"`
	LastUpdated time.Time `json:"last_updated"`
	Energy      float64   `json:"energy"`
	TargetField string    `json:"target_field"`
	RuleIndex   int       `json:"rule_index"` // position of the producing rule in its table
}

// Resolved is the outcome of conflict resolution for one target field.
// For aggregated fields Value holds the ordered list of candidate values and
// Winner is the first candidate in resolution order.
type Resolved struct {
	TargetField string
	Value       any
	Track       bool
	Winner      Candidate
}

// Origin records which task contributed the winning value of a tracked field.
type Origin struct {
	TargetField string    `json:"target_field"`
	TaskType    string    `json:"task_type"`
	TaskID      string    `json:"task_id"`
	LastUpdated time.Time `json:"last_updated"`
}

// Document is the assembled aggregate record for one molecule instance.
//
// Fields holds every merged property plus derived structure metadata as a
// nested map. BuiltAt is the pass stamp; it is excluded from content digests.
type Document struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	TaskIDs   []string
	Origins   []Origin
	TaskTypes map[string]string
	Fields    map[string]any
	BuiltAt   time.Time
}

// Map flattens the document into the generic form used for storage and
// canonical encoding. Merged fields share the top level with reserved keys.
func (d *Document) Map() map[string]any {
	m := make(map[string]any, len(d.Fields)+7)
	for k, v := range d.Fields {
		m[k] = v
	}

	taskIDs := make([]any, len(d.TaskIDs))
	for i, id := range d.TaskIDs {
		taskIDs[i] = id
	}

	origins := make([]any, len(d.Origins))
	for i, o := range d.Origins {
		origins[i] = map[string]any{
			"target_field": o.TargetField,
			"task_type":    o.TaskType,
			"task_id":      o.TaskID,
			"last_updated": FormatTime(o.LastUpdated),
		}
	}

	taskTypes := make(map[string]any, len(d.TaskTypes))
	for id, tt := range d.TaskTypes {
		taskTypes[id] = tt
	}

	m[KeyID] = d.ID
	m[KeyCreatedAt] = FormatTime(d.CreatedAt)
	m[KeyUpdatedAt] = FormatTime(d.UpdatedAt)
	m[KeyTaskIDs] = taskIDs
	m[KeyOrigins] = origins
	m[KeyTaskTypes] = taskTypes
	if !d.BuiltAt.IsZero() {
		m[KeyBuiltAt] = FormatTime(d.BuiltAt)
	}
	return m
}

// Has reports whether the document carries a value at the dotted path.
func (d *Document) Has(path string) bool {
	return Has(d.Fields, path)
}

// IndexedStructure is a task's initial structure tagged with the index of
// the task in its formula batch. Groupers partition these indices.
type IndexedStructure struct {
	Index     int
	TaskID    string
	Structure map[string]any
}
