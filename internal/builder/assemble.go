package builder

import (
	"fmt"
	"time"

	"github.com/roach88/molbuild/internal/chem"
	"github.com/roach88/molbuild/internal/mol"
)

// StructureField is the document field holding the canonical structure.
// Its presence makes a document valid and triggers metadata enrichment.
const StructureField = "structure"

// supplementOnly lists metadata keys that never replace a resolved value.
var supplementOnly = map[string]bool{
	chem.KeyCharge:           true,
	chem.KeySpinMultiplicity: true,
}

// Assemble composes the document for one instance group.
//
// Identity and timestamp bounds come from the candidates; a group without
// candidates falls back to its tasks so the result can still be judged by
// the validator. task_ids and task_types cover every task in the group.
func Assemble(tasks []mol.Task, candidates []mol.Candidate, stamp time.Time) (*mol.Document, error) {
	if len(tasks) == 0 {
		return nil, &mol.Error{Code: mol.ErrCodeEmptyGroup, Message: "instance group has no tasks"}
	}

	idSource := make([]string, 0, len(candidates))
	for _, c := range candidates {
		idSource = append(idSource, c.TaskID)
	}
	if len(idSource) == 0 {
		for _, t := range tasks {
			idSource = append(idSource, t.TaskID)
		}
	}
	id, err := Identity(idSource)
	if err != nil {
		return nil, err
	}

	created, updated := timestampBounds(tasks, candidates)

	taskIDs := make([]string, len(tasks))
	taskTypes := make(map[string]string, len(tasks))
	for i, t := range tasks {
		taskIDs[i] = t.TaskID
		taskTypes[t.TaskID] = t.TaskType
	}

	resolved := Resolve(candidates)
	fields := make(map[string]any)
	for _, r := range resolved {
		mol.Set(fields, r.TargetField, r.Value)
	}

	doc := &mol.Document{
		ID:        id,
		CreatedAt: created,
		UpdatedAt: updated,
		TaskIDs:   sortTaskIDs(taskIDs),
		Origins:   Origins(resolved),
		TaskTypes: taskTypes,
		Fields:    fields,
		BuiltAt:   stamp,
	}

	if structure, ok := fields[StructureField]; ok {
		meta, err := chem.StructureMetadata(structure)
		if err != nil {
			return nil, &mol.Error{
				Code:    mol.ErrCodeInvalidDocument,
				Message: fmt.Sprintf("structure of %s", id),
				TaskID:  id,
				Err:     err,
			}
		}
		for k, v := range meta {
			if _, exists := fields[k]; exists && supplementOnly[k] {
				continue
			}
			fields[k] = v
		}
	}
	return doc, nil
}

// timestampBounds returns min and max last_updated over the candidates, or
// over the tasks when there are no candidates.
func timestampBounds(tasks []mol.Task, candidates []mol.Candidate) (time.Time, time.Time) {
	var stamps []time.Time
	for _, c := range candidates {
		stamps = append(stamps, c.LastUpdated)
	}
	if len(stamps) == 0 {
		for _, t := range tasks {
			stamps = append(stamps, t.LastUpdated)
		}
	}
	lo, hi := stamps[0], stamps[0]
	for _, s := range stamps[1:] {
		if s.Before(lo) {
			lo = s
		}
		if s.After(hi) {
			hi = s
		}
	}
	return lo.UTC(), hi.UTC()
}
