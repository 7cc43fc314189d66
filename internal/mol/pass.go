package mol

import "time"

// Pass statuses.
const (
	PassCompleted = "completed"
	PassAborted   = "aborted"
)

// PassRecord is one entry in the pass log. Only completed passes advance
// the checkpoint for their filter key.
type PassRecord struct {
	PassID      string    `json:"pass_id"`
	FilterKey   string    `json:"filter_key"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Checkpoint  time.Time `json:"checkpoint"`
	Processed   int       `json:"processed"`
	Written     int       `json:"written"`
	Dropped     int       `json:"dropped"`
	Failed      int       `json:"failed"`
}

// UpsertResult counts the outcome of one batched upsert.
type UpsertResult struct {
	Written   int `json:"written"`   // inserted or content changed
	Unchanged int `json:"unchanged"` // same content digest, only the stamp rewritten
}
