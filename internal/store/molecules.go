package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/molbuild/internal/chem"
	"github.com/roach88/molbuild/internal/mol"
)

// DistinctTaskIDs returns every task id referenced by a stored molecule, in
// byte order.
func (s *Store) DistinctTaskIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT DISTINCT task_id FROM molecule_tasks
		ORDER BY task_id %s ASC
	`, s.dialect.Collate()))
	if err != nil {
		return nil, fmt.Errorf("distinct task ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan task id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task ids: %w", err)
	}
	return ids, nil
}

// Checkpoint returns the newest checkpoint among completed passes for
// filterKey, falling back to the newest molecule updated_at.
func (s *Store) Checkpoint(ctx context.Context, filterKey string) (time.Time, bool, error) {
	var cp sql.NullString
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT MAX(checkpoint) FROM passes
		WHERE filter_key = ? AND status = ? AND checkpoint <> ''
	`), filterKey, mol.PassCompleted).Scan(&cp)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("checkpoint: %w", err)
	}

	if !cp.Valid {
		err := s.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM molecules`).Scan(&cp)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("checkpoint fallback: %w", err)
		}
	}
	if !cp.Valid || cp.String == "" {
		return time.Time{}, false, nil
	}

	t, err := mol.ParseTime(cp.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("checkpoint: %w", err)
	}
	return t, true, nil
}

// Upsert writes documents keyed by id in one transaction, stamping each with
// stamp. A document whose content digest matches the stored one only has
// built_at rewritten; the stored updated_at is never touched by the stamp.
func (s *Store) Upsert(ctx context.Context, docs []*mol.Document, stamp time.Time) (mol.UpsertResult, error) {
	var res mol.UpsertResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("upsert: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	builtAt := mol.FormatTime(stamp)
	for _, d := range docs {
		hash, err := mol.ContentHash(d)
		if err != nil {
			return mol.UpsertResult{}, fmt.Errorf("upsert %s: %w", d.ID, err)
		}

		var existing string
		err = tx.QueryRowContext(ctx, s.q(`SELECT content_hash FROM molecules WHERE id = ?`), d.ID).Scan(&existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return mol.UpsertResult{}, fmt.Errorf("upsert %s: %w", d.ID, err)
		case existing == hash:
			if _, err := tx.ExecContext(ctx, s.q(`UPDATE molecules SET built_at = ? WHERE id = ?`), builtAt, d.ID); err != nil {
				return mol.UpsertResult{}, fmt.Errorf("upsert %s: restamp: %w", d.ID, err)
			}
			res.Unchanged++
			continue
		}

		if err := s.writeMolecule(ctx, tx, d, hash, builtAt); err != nil {
			return mol.UpsertResult{}, err
		}
		res.Written++
	}

	if err := tx.Commit(); err != nil {
		return mol.UpsertResult{}, fmt.Errorf("upsert: commit: %w", err)
	}
	return res, nil
}

// writeMolecule stores one changed document and rewrites its task index.
func (s *Store) writeMolecule(ctx context.Context, tx *sql.Tx, d *mol.Document, hash, builtAt string) error {
	m := d.Map()
	delete(m, mol.KeyBuiltAt)
	doc, err := mol.MarshalCanonical(m)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", d.ID, err)
	}
	formula, _ := d.Fields[chem.KeyFormulaPretty].(string)

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO molecules (id, formula, created_at, updated_at, built_at, content_hash, doc)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			formula = excluded.formula,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			built_at = excluded.built_at,
			content_hash = excluded.content_hash,
			doc = excluded.doc
	`),
		d.ID,
		formula,
		mol.FormatTime(d.CreatedAt),
		mol.FormatTime(d.UpdatedAt),
		builtAt,
		hash,
		string(doc),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", d.ID, err)
	}

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM molecule_tasks WHERE molecule_id = ?`), d.ID); err != nil {
		return fmt.Errorf("upsert %s: clear task index: %w", d.ID, err)
	}
	for _, taskID := range d.TaskIDs {
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO molecule_tasks (task_id, molecule_id) VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`), taskID, d.ID)
		if err != nil {
			return fmt.Errorf("upsert %s: index task %s: %w", d.ID, taskID, err)
		}
	}
	return nil
}

// RecordPass appends an entry to the pass log. Re-recording the same pass
// id is a no-op.
func (s *Store) RecordPass(ctx context.Context, rec mol.PassRecord) error {
	if rec.Status != mol.PassCompleted && rec.Status != mol.PassAborted {
		return fmt.Errorf("record pass %s: invalid status %q", rec.PassID, rec.Status)
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO passes
		(pass_id, filter_key, status, started_at, completed_at, checkpoint, processed, written, dropped, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pass_id) DO NOTHING
	`),
		rec.PassID,
		rec.FilterKey,
		rec.Status,
		mol.FormatTime(rec.StartedAt),
		mol.FormatTime(rec.CompletedAt),
		mol.FormatTime(rec.Checkpoint),
		rec.Processed,
		rec.Written,
		rec.Dropped,
		rec.Failed,
	)
	if err != nil {
		return fmt.Errorf("record pass %s: %w", rec.PassID, err)
	}
	return nil
}

// Passes returns the pass log for filterKey, oldest first.
func (s *Store) Passes(ctx context.Context, filterKey string) ([]mol.PassRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.q(fmt.Sprintf(`
		SELECT pass_id, filter_key, status, started_at, completed_at, checkpoint, processed, written, dropped, failed
		FROM passes
		WHERE filter_key = ?
		ORDER BY started_at ASC, pass_id %s ASC
	`, s.dialect.Collate())), filterKey)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	passes := []mol.PassRecord{}
	for rows.Next() {
		var (
			rec                             mol.PassRecord
			startedAt, completedAt, checkpt string
		)
		if err := rows.Scan(&rec.PassID, &rec.FilterKey, &rec.Status, &startedAt, &completedAt, &checkpt,
			&rec.Processed, &rec.Written, &rec.Dropped, &rec.Failed); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		for _, f := range []struct {
			dst *time.Time
			src string
		}{{&rec.StartedAt, startedAt}, {&rec.CompletedAt, completedAt}, {&rec.Checkpoint, checkpt}} {
			t, err := mol.ParseTime(f.src)
			if err != nil {
				return nil, fmt.Errorf("pass %s: %w", rec.PassID, err)
			}
			*f.dst = t
		}
		passes = append(passes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return passes, nil
}

// Get returns a stored molecule document by id, with its pass stamp.
// Returns nil, nil if not found.
func (s *Store) Get(ctx context.Context, id string) (map[string]any, error) {
	var doc, builtAt string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT doc, built_at FROM molecules WHERE id = ?`), id).Scan(&doc, &builtAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get molecule %s: %w", id, err)
	}

	m, err := mol.DecodeJSON([]byte(doc))
	if err != nil {
		return nil, fmt.Errorf("get molecule %s: %w", id, err)
	}
	if builtAt != "" {
		m[mol.KeyBuiltAt] = builtAt
	}
	return m, nil
}
