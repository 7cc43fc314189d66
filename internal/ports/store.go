package ports

import (
	"context"
	"iter"
	"time"

	"github.com/roach88/molbuild/internal/filter"
	"github.com/roach88/molbuild/internal/mol"
)

// TaskStore is the read side of the task collection.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type TaskStore interface {
	// Distinct returns the distinct values of a task column among tasks
	// matching p, in byte order.
	Distinct(ctx context.Context, field string, p filter.Predicate) ([]string, error)

	// Query yields matching tasks ordered by task id. Iteration stops at the
	// first error.
	Query(ctx context.Context, p filter.Predicate) iter.Seq2[mol.Task, error]
}

// TaskSink loads task records into the task collection.
type TaskSink interface {
	// PutTasks inserts or replaces tasks keyed by task id.
	PutTasks(ctx context.Context, tasks []mol.Task) error
}

// MoleculeStore is the molecule collection plus its pass log.
type MoleculeStore interface {
	// DistinctTaskIDs returns every task id referenced by a stored molecule.
	DistinctTaskIDs(ctx context.Context) ([]string, error)

	// Checkpoint returns the last completed pass checkpoint for filterKey.
	// When no pass was recorded it falls back to the newest molecule
	// updated_at; ok is false only when the store holds neither.
	Checkpoint(ctx context.Context, filterKey string) (cp time.Time, ok bool, err error)

	// Upsert writes documents keyed by id in one transaction, stamping
	// each with stamp. Documents whose content digest is unchanged only
	// have their stamp rewritten.
	Upsert(ctx context.Context, docs []*mol.Document, stamp time.Time) (mol.UpsertResult, error)

	// RecordPass appends an entry to the pass log.
	RecordPass(ctx context.Context, rec mol.PassRecord) error

	// Get returns a stored molecule document by id.
	// Returns nil, nil if not found.
	Get(ctx context.Context, id string) (map[string]any, error)
}
