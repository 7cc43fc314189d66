package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	"github.com/roach88/molbuild/internal/filter"
	"github.com/roach88/molbuild/internal/mol"
)

// Distinct returns the distinct values of a task column among tasks matching
// p, in byte order.
func (s *Store) Distinct(ctx context.Context, field string, p filter.Predicate) ([]string, error) {
	query, args, err := s.compiler.SelectDistinct(field, p)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", field, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", field, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct %s: %w", field, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct %s: %w", field, err)
	}
	return values, nil
}

// Query yields the tasks matching p ordered by task id. Iteration stops at
// the first error. The rows stay open until iteration ends, so callers must
// not issue other store calls from inside the loop on a single-connection
// backend.
func (s *Store) Query(ctx context.Context, p filter.Predicate) iter.Seq2[mol.Task, error] {
	return func(yield func(mol.Task, error) bool) {
		query, args, err := s.compiler.SelectTasks(p)
		if err != nil {
			yield(mol.Task{}, fmt.Errorf("query tasks: %w", err))
			return
		}

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(mol.Task{}, fmt.Errorf("query tasks: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			task, err := scanTask(rows)
			if err != nil {
				yield(mol.Task{}, err)
				return
			}
			if !yield(task, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(mol.Task{}, fmt.Errorf("iterate tasks: %w", err))
		}
	}
}

// PutTasks inserts or replaces tasks keyed by task id in one transaction.
// The task document is stored as canonical JSON.
func (s *Store) PutTasks(ctx context.Context, tasks []mol.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put tasks: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, s.q(`
		INSERT INTO tasks (task_id, formula, state, last_updated, doc)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			formula = excluded.formula,
			state = excluded.state,
			last_updated = excluded.last_updated,
			doc = excluded.doc
	`))
	if err != nil {
		return fmt.Errorf("put tasks: prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		if t.TaskID == "" {
			return fmt.Errorf("put tasks: task without task_id")
		}
		doc, err := mol.MarshalCanonical(t.Doc)
		if err != nil {
			return fmt.Errorf("put tasks: task %s: %w", t.TaskID, err)
		}
		if _, err := stmt.ExecContext(ctx, t.TaskID, t.Formula, t.State, mol.FormatTime(t.LastUpdated), string(doc)); err != nil {
			return fmt.Errorf("put tasks: task %s: %w", t.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put tasks: commit: %w", err)
	}
	return nil
}

// scanTask scans a row from SELECT task_id, formula, state, last_updated, doc.
func scanTask(rows *sql.Rows) (mol.Task, error) {
	var (
		t           mol.Task
		lastUpdated string
		doc         string
	)
	if err := rows.Scan(&t.TaskID, &t.Formula, &t.State, &lastUpdated, &doc); err != nil {
		return mol.Task{}, fmt.Errorf("scan task: %w", err)
	}

	lu, err := mol.ParseTime(lastUpdated)
	if err != nil {
		return mol.Task{}, fmt.Errorf("task %s: %w", t.TaskID, err)
	}
	t.LastUpdated = lu

	t.Doc, err = mol.DecodeJSON([]byte(doc))
	if err != nil {
		return mol.Task{}, fmt.Errorf("task %s: doc: %w", t.TaskID, err)
	}
	return t, nil
}
