package harness

import (
	"github.com/roach88/molbuild/internal/changeset"
	"github.com/roach88/molbuild/internal/mol"
	"github.com/roach88/molbuild/internal/pipeline"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every pass expectation and assertion held.
	Pass bool `json:"pass"`

	// Errors lists failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`

	// Reports holds one report per executed pass; dry runs have none.
	Reports []*pipeline.PassReport `json:"reports"`

	// Plans holds the change set of each dry-run step.
	Plans []*changeset.ChangeSet `json:"-"`

	// Molecules are the final stored documents ordered by id.
	Molecules []map[string]any `json:"molecules"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Errors:    []string{},
		Reports:   []*pipeline.PassReport{},
		Molecules: []map[string]any{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Molecule returns the final document with the given id, or nil.
func (r *Result) Molecule(id string) map[string]any {
	for _, doc := range r.Molecules {
		if doc[mol.KeyID] == id {
			return doc
		}
	}
	return nil
}
