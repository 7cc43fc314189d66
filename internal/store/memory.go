package store

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/roach88/molbuild/internal/filter"
	"github.com/roach88/molbuild/internal/mol"
	"github.com/roach88/molbuild/internal/ports"
)

var (
	_ ports.TaskStore     = (*Memory)(nil)
	_ ports.TaskSink      = (*Memory)(nil)
	_ ports.MoleculeStore = (*Memory)(nil)
)

type memMolecule struct {
	doc       map[string]any
	hash      string
	taskIDs   []string
	updatedAt time.Time
	builtAt   time.Time
}

// Memory is an in-process implementation of the task and molecule ports
// with the same ordering and idempotence rules as Store. Values are copied
// on the way in and out.
type Memory struct {
	mu        sync.RWMutex
	tasks     map[string]mol.Task
	molecules map[string]memMolecule
	passes    []mol.PassRecord
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tasks:     make(map[string]mol.Task),
		molecules: make(map[string]memMolecule),
	}
}

// PutTasks inserts or replaces tasks keyed by task id.
func (m *Memory) PutTasks(_ context.Context, tasks []mol.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range tasks {
		if t.TaskID == "" {
			return fmt.Errorf("put tasks: task without task_id")
		}
		t.TaskType = ""
		t.LastUpdated = t.LastUpdated.UTC()
		t.Doc, _ = mol.Clone(t.Doc).(map[string]any)
		m.tasks[t.TaskID] = t
	}
	return nil
}

// Distinct returns the distinct values of a task column among tasks
// matching p, in byte order.
func (m *Memory) Distinct(ctx context.Context, field string, p filter.Predicate) ([]string, error) {
	if !filter.IsStringField(field) {
		return nil, fmt.Errorf("distinct: unsupported field %q", field)
	}
	if err := filter.Validate(p); err != nil {
		return nil, fmt.Errorf("distinct %s: %w", field, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	values := []string{}
	for _, t := range m.tasks {
		if !filter.Match(p, t) {
			continue
		}
		v, _ := filter.Column(t, field)
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	sort.Strings(values)
	return values, nil
}

// Query yields the tasks matching p ordered by task id.
func (m *Memory) Query(ctx context.Context, p filter.Predicate) iter.Seq2[mol.Task, error] {
	return func(yield func(mol.Task, error) bool) {
		if err := filter.Validate(p); err != nil {
			yield(mol.Task{}, fmt.Errorf("query tasks: %w", err))
			return
		}

		m.mu.RLock()
		var matched []mol.Task
		for _, t := range m.tasks {
			if filter.Match(p, t) {
				t.Doc, _ = mol.Clone(t.Doc).(map[string]any)
				matched = append(matched, t)
			}
		}
		m.mu.RUnlock()

		sort.Slice(matched, func(i, j int) bool { return matched[i].TaskID < matched[j].TaskID })
		for _, t := range matched {
			if err := ctx.Err(); err != nil {
				yield(mol.Task{}, err)
				return
			}
			if !yield(t, nil) {
				return
			}
		}
	}
}

// DistinctTaskIDs returns every task id referenced by a stored molecule.
func (m *Memory) DistinctTaskIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	ids := []string{}
	for _, rec := range m.molecules {
		for _, id := range rec.taskIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Checkpoint mirrors Store.Checkpoint.
func (m *Memory) Checkpoint(_ context.Context, filterKey string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var cp time.Time
	found := false
	for _, p := range m.passes {
		if p.FilterKey != filterKey || p.Status != mol.PassCompleted || p.Checkpoint.IsZero() {
			continue
		}
		if !found || p.Checkpoint.After(cp) {
			cp, found = p.Checkpoint, true
		}
	}
	if found {
		return cp, true, nil
	}

	for _, rec := range m.molecules {
		if !found || rec.updatedAt.After(cp) {
			cp, found = rec.updatedAt, true
		}
	}
	if !found || cp.IsZero() {
		return time.Time{}, false, nil
	}
	return cp, true, nil
}

// Upsert mirrors Store.Upsert.
func (m *Memory) Upsert(_ context.Context, docs []*mol.Document, stamp time.Time) (mol.UpsertResult, error) {
	type pending struct {
		id  string
		rec memMolecule
	}
	var (
		res    mol.UpsertResult
		writes []pending
	)

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range docs {
		hash, err := mol.ContentHash(d)
		if err != nil {
			return mol.UpsertResult{}, fmt.Errorf("upsert %s: %w", d.ID, err)
		}
		if existing, ok := m.molecules[d.ID]; ok && existing.hash == hash {
			existing.builtAt = stamp
			writes = append(writes, pending{d.ID, existing})
			res.Unchanged++
			continue
		}
		doc, _ := mol.Clone(d.Map()).(map[string]any)
		delete(doc, mol.KeyBuiltAt)
		writes = append(writes, pending{d.ID, memMolecule{
			doc:       doc,
			hash:      hash,
			taskIDs:   slices.Clone(d.TaskIDs),
			updatedAt: d.UpdatedAt.UTC(),
			builtAt:   stamp,
		}})
		res.Written++
	}

	// All or nothing, like the SQL transaction.
	for _, w := range writes {
		m.molecules[w.id] = w.rec
	}
	return res, nil
}

// RecordPass appends an entry to the pass log. Re-recording the same pass
// id is a no-op.
func (m *Memory) RecordPass(_ context.Context, rec mol.PassRecord) error {
	if rec.Status != mol.PassCompleted && rec.Status != mol.PassAborted {
		return fmt.Errorf("record pass %s: invalid status %q", rec.PassID, rec.Status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.passes {
		if p.PassID == rec.PassID {
			return nil
		}
	}
	m.passes = append(m.passes, rec)
	return nil
}

// Passes returns the pass log for filterKey, oldest first.
func (m *Memory) Passes(_ context.Context, filterKey string) ([]mol.PassRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	passes := []mol.PassRecord{}
	for _, p := range m.passes {
		if p.FilterKey == filterKey {
			passes = append(passes, p)
		}
	}
	sort.SliceStable(passes, func(i, j int) bool { return passes[i].StartedAt.Before(passes[j].StartedAt) })
	return passes, nil
}

// Get returns a stored molecule document by id, with its pass stamp.
// Returns nil, nil if not found.
func (m *Memory) Get(_ context.Context, id string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.molecules[id]
	if !ok {
		return nil, nil
	}
	out, _ := mol.Clone(rec.doc).(map[string]any)
	if !rec.builtAt.IsZero() {
		out[mol.KeyBuiltAt] = mol.FormatTime(rec.builtAt)
	}
	return out, nil
}
