package builder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/molbuild/internal/mol"
	"github.com/roach88/molbuild/internal/ports"
)

// DefaultStructurePath locates a task's input structure, the value handed
// to the grouper.
const DefaultStructurePath = "output.initial_molecule"

// Builder builds molecule documents for formula batches.
type Builder struct {
	rules         *mol.RuleTable
	extractor     Extractor
	classifier    ports.Classifier
	grouper       ports.Grouper
	structurePath string
	logger        *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithEnergyPath sets the dotted path of a task's energy.
func WithEnergyPath(path string) Option {
	return func(b *Builder) {
		if path != "" {
			b.extractor.EnergyPath = path
		}
	}
}

// WithStructurePath sets the dotted path of a task's input structure.
func WithStructurePath(path string) Option {
	return func(b *Builder) {
		if path != "" {
			b.structurePath = path
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a Builder.
func New(rules *mol.RuleTable, classifier ports.Classifier, grouper ports.Grouper, opts ...Option) *Builder {
	b := &Builder{
		rules:         rules,
		extractor:     Extractor{Rules: rules, EnergyPath: DefaultEnergyPath},
		classifier:    classifier,
		grouper:       grouper,
		structurePath: DefaultStructurePath,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AllowedTaskTypes lists the task types named by any rule, sorted.
func (b *Builder) AllowedTaskTypes() []string {
	return b.rules.AllowedTaskTypes()
}

// BatchResult is the outcome of building one formula batch.
type BatchResult struct {
	Formula   string
	Documents []*mol.Document
	Tasks     int // tasks that reached the grouper
	Groups    int
	Dropped   int // documents rejected by the validator
	Skipped   int // groups whose document could not be assembled
	Misses    int // extraction errors on required rules
}

// BuildBatch classifies, groups and assembles the tasks of one formula.
//
// Tasks that cannot be classified, whose type no rule allows, or that lack
// a structure are left out before grouping. A grouper error or an invalid
// partition fails the whole batch with GROUPING_FAILED. Per-group failures
// are logged and counted; the remaining groups still produce documents.
func (b *Builder) BuildBatch(ctx context.Context, formula string, tasks []mol.Task, stamp time.Time) (*BatchResult, error) {
	res := &BatchResult{Formula: formula}

	eligible, structures := b.prepare(formula, tasks)
	res.Tasks = len(eligible)
	if len(eligible) == 0 {
		return res, nil
	}

	groups, err := b.grouper.Group(ctx, structures)
	if err == nil {
		err = CheckPartition(structures, groups)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &mol.Error{Code: mol.ErrCodeGroupingFailed, Message: "structural grouping failed", Key: formula, Err: err}
	}
	res.Groups = len(groups)

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		members := make([]mol.Task, len(g))
		for i, idx := range g {
			members[i] = eligible[idx]
		}

		doc, misses, err := b.BuildGroup(members, stamp)
		res.Misses += misses
		if err != nil {
			b.logger.Error("skipping group",
				"formula", formula,
				"tasks", len(members),
				"error", err,
			)
			res.Skipped++
			continue
		}
		if !Valid(doc) {
			b.logger.Warn("dropping invalid document",
				"formula", formula,
				"id", doc.ID,
				"reason", "missing "+StructureField,
			)
			res.Dropped++
			continue
		}
		res.Documents = append(res.Documents, doc)
	}

	b.logger.Debug("batch built",
		"formula", formula,
		"tasks", res.Tasks,
		"groups", res.Groups,
		"documents", len(res.Documents),
	)
	return res, nil
}

// BuildGroup extracts, resolves and assembles one instance group. It
// returns the number of extraction misses alongside the document.
func (b *Builder) BuildGroup(tasks []mol.Task, stamp time.Time) (*mol.Document, int, error) {
	var candidates []mol.Candidate
	misses := 0
	for _, t := range tasks {
		cs, errs := b.extractor.Extract(t)
		for _, err := range errs {
			misses++
			b.logger.Error("extraction failed",
				"task_id", t.TaskID,
				"task_type", t.TaskType,
				"error", err,
			)
		}
		candidates = append(candidates, cs...)
	}

	doc, err := Assemble(tasks, candidates, stamp)
	if err != nil {
		return nil, misses, err
	}
	return doc, misses, nil
}

// prepare classifies tasks and keeps those the rule table allows and that
// carry a structure. The returned structures index into the returned
// task slice.
func (b *Builder) prepare(formula string, tasks []mol.Task) ([]mol.Task, []mol.IndexedStructure) {
	var eligible []mol.Task
	var structures []mol.IndexedStructure

	for _, t := range tasks {
		tt, err := b.classify(t)
		if err != nil {
			b.logger.Error("classification failed", "formula", formula, "task_id", t.TaskID, "error", err)
			continue
		}
		if !b.rules.Allows(tt) {
			b.logger.Debug("task type not allowed", "task_id", t.TaskID, "task_type", tt)
			continue
		}
		raw, ok := mol.Get(t.Doc, b.structurePath)
		if !ok {
			b.logger.Error("task has no structure", "formula", formula, "task_id", t.TaskID, "path", b.structurePath)
			continue
		}
		structure, ok := raw.(map[string]any)
		if !ok {
			b.logger.Error("task structure is not an object", "formula", formula, "task_id", t.TaskID, "path", b.structurePath)
			continue
		}

		t.TaskType = tt
		structures = append(structures, mol.IndexedStructure{
			Index:     len(eligible),
			TaskID:    t.TaskID,
			Structure: structure,
		})
		eligible = append(eligible, t)
	}
	return eligible, structures
}

// classify uses the record's own task type when the store provides one.
func (b *Builder) classify(t mol.Task) (string, error) {
	if t.TaskType != "" {
		return t.TaskType, nil
	}
	orig, _ := t.Doc["orig"].(map[string]any)
	tt, err := b.classifier.Classify(orig)
	if err != nil {
		return "", fmt.Errorf("task %s: %w", t.TaskID, err)
	}
	return tt, nil
}
