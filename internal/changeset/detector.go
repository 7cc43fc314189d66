// Package changeset decides which grouping keys (formulas) a pass must
// reprocess.
//
// The detector reconciles sets instead of diffing documents: a formula is
// selected when it owns a successful task no molecule references yet, or a
// successful task updated after the last completed pass for the same
// filter. Whole formulas are reprocessed, so over-selection is harmless.
package changeset

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/molbuild/internal/filter"
	"github.com/roach88/molbuild/internal/ports"
)

// DefaultChunkSize bounds the task ids bound into one IN list.
const DefaultChunkSize = 500

// ChangeSet is the outcome of one detection.
type ChangeSet struct {
	// Keys is the sorted union of NewKeys and UpdatedKeys.
	Keys []string

	// NewKeys own at least one successful task not yet in any molecule.
	NewKeys []string

	// UpdatedKeys own a successful task updated after Checkpoint.
	UpdatedKeys []string

	// NewTasks counts unprocessed successful tasks.
	NewTasks int

	// Checkpoint is the reference time for updated work. HasCheckpoint is
	// false on a first pass, when every task is new work anyway.
	Checkpoint    time.Time
	HasCheckpoint bool

	// Query is the effective task filter (caller filter, successful state).
	Query filter.Predicate

	// FilterKey identifies the caller filter in the pass log.
	FilterKey string
}

// Detector computes change sets from the task and molecule stores.
type Detector struct {
	tasks     ports.TaskStore
	molecules ports.MoleculeStore
	chunkSize int
	logger    *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithChunkSize overrides DefaultChunkSize.
func WithChunkSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = l
	}
}

// NewDetector creates a detector over the given stores.
func NewDetector(tasks ports.TaskStore, molecules ports.MoleculeStore, opts ...Option) *Detector {
	d := &Detector{
		tasks:     tasks,
		molecules: molecules,
		chunkSize: DefaultChunkSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Successful restricts a caller filter to successful tasks. Any state
// condition at the top level of the caller filter is replaced.
func Successful(query filter.Predicate) filter.Predicate {
	var kept []filter.Predicate
	var visit func(p filter.Predicate)
	visit = func(p filter.Predicate) {
		switch node := p.(type) {
		case nil:
		case filter.And:
			for _, inner := range node.Predicates {
				visit(inner)
			}
		case filter.Equals:
			if node.Field != filter.FieldState {
				kept = append(kept, node)
			}
		case filter.In:
			if node.Field != filter.FieldState {
				kept = append(kept, node)
			}
		default:
			kept = append(kept, p)
		}
	}
	visit(query)
	kept = append(kept, filter.Equals{Field: filter.FieldState, Value: filter.StateSuccessful})
	return filter.All(kept...)
}

// Detect computes the change set for query.
func (d *Detector) Detect(ctx context.Context, query filter.Predicate) (*ChangeSet, error) {
	if err := filter.Validate(query); err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	q := Successful(query)
	cs := &ChangeSet{Query: q, FilterKey: filter.Key(query)}

	d.logger.Info("finding tasks to process")

	all, err := d.tasks.Distinct(ctx, filter.FieldTaskID, q)
	if err != nil {
		return nil, fmt.Errorf("detect: list tasks: %w", err)
	}
	processed, err := d.molecules.DistinctTaskIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect: list processed tasks: %w", err)
	}

	done := make(map[string]bool, len(processed))
	for _, id := range processed {
		done[id] = true
	}
	var unprocessed []string
	for _, id := range all {
		if !done[id] {
			unprocessed = append(unprocessed, id)
		}
	}
	cs.NewTasks = len(unprocessed)

	newKeys := make(map[string]bool)
	for start := 0; start < len(unprocessed); start += d.chunkSize {
		end := min(start+d.chunkSize, len(unprocessed))
		chunk := filter.In{Field: filter.FieldTaskID, Values: unprocessed[start:end]}
		keys, err := d.tasks.Distinct(ctx, filter.FieldFormula, filter.All(q, chunk))
		if err != nil {
			return nil, fmt.Errorf("detect: new formulas: %w", err)
		}
		for _, k := range keys {
			newKeys[k] = true
		}
	}
	cs.NewKeys = sortedKeys(newKeys)
	d.logger.Info("found unprocessed work", "tasks", cs.NewTasks, "formulas", len(cs.NewKeys))

	cs.Checkpoint, cs.HasCheckpoint, err = d.molecules.Checkpoint(ctx, cs.FilterKey)
	if err != nil {
		return nil, fmt.Errorf("detect: checkpoint: %w", err)
	}
	if cs.HasCheckpoint {
		updated := filter.All(q, filter.After{Field: filter.FieldLastUpdated, Time: cs.Checkpoint})
		cs.UpdatedKeys, err = d.tasks.Distinct(ctx, filter.FieldFormula, updated)
		if err != nil {
			return nil, fmt.Errorf("detect: updated formulas: %w", err)
		}
	}
	d.logger.Info("found updated systems",
		"formulas", len(cs.UpdatedKeys),
		"checkpoint", cs.Checkpoint,
		"has_checkpoint", cs.HasCheckpoint,
	)

	union := make(map[string]bool, len(cs.NewKeys)+len(cs.UpdatedKeys))
	for _, k := range cs.NewKeys {
		union[k] = true
	}
	for _, k := range cs.UpdatedKeys {
		union[k] = true
	}
	cs.Keys = sortedKeys(union)
	d.logger.Info("processing systems", "total", len(cs.Keys))
	return cs, nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
