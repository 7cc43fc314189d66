package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/molbuild/internal/builder"
	"github.com/roach88/molbuild/internal/classify"
	"github.com/roach88/molbuild/internal/filter"
	"github.com/roach88/molbuild/internal/mol"
	"github.com/roach88/molbuild/internal/pipeline"
	"github.com/roach88/molbuild/internal/rules"
	"github.com/roach88/molbuild/internal/store"
	"github.com/roach88/molbuild/internal/testutil"
)

// passInterval is how far the clock advances after each pass.
const passInterval = time.Hour

// Harness holds the per-scenario store, clock and runner.
type Harness struct {
	store  *store.Store
	runner *pipeline.Runner
	clock  *testutil.FixedClock
	query  filter.Predicate
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. The
// returned error reports harness failures (unreadable rules, store
// errors); failed expectations are collected in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(store.DriverSQLite, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := newHarness(st, scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Passes {
		if err := h.executePass(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("passes[%d]: %w", i, err)
		}
	}

	molecules, err := loadMolecules(ctx, st)
	if err != nil {
		return nil, err
	}
	result.Molecules = molecules

	actx := &AssertionContext{Ctx: ctx, Store: st, FilterKey: filter.Key(h.query)}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

func newHarness(st *store.Store, scenario *Scenario) (*Harness, error) {
	table, err := rules.Load(scenario.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	var query filter.Predicate
	if len(scenario.Query) > 0 {
		if query, err = filter.FromMap(scenario.Query); err != nil {
			return nil, err
		}
	}

	start := scenario.Start
	if start.IsZero() {
		start = DefaultStart
	}
	clock := testutil.NewFixedClock(start.UTC())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	n := 0
	b := builder.New(table, classify.JobType{}, builder.ExactStructure{}, builder.WithLogger(logger))
	runner := pipeline.New(st, st, b,
		pipeline.WithClock(clock),
		pipeline.WithLogger(logger),
		pipeline.WithWorkers(2),
		pipeline.WithPassIDs(func() (string, error) {
			n++
			return fmt.Sprintf("pass-%d", n), nil
		}),
	)

	return &Harness{store: st, runner: runner, clock: clock, query: query, logger: logger}, nil
}

// executePass ingests the step's tasks and runs (or plans) one pass.
func (h *Harness) executePass(ctx context.Context, index int, step PassStep, result *Result) error {
	if !step.At.IsZero() {
		h.clock.Set(step.At.UTC())
	}

	if len(step.Tasks) > 0 {
		tasks := make([]mol.Task, len(step.Tasks))
		for i, rec := range step.Tasks {
			t, err := mol.TaskFromRecord(rec)
			if err != nil {
				return fmt.Errorf("tasks[%d]: %w", i, err)
			}
			tasks[i] = t
		}
		if err := h.store.PutTasks(ctx, tasks); err != nil {
			return err
		}
	}

	if step.DryRun {
		cs, err := h.runner.Plan(ctx, h.query)
		if err != nil {
			return err
		}
		result.Plans = append(result.Plans, cs)
		if step.Expect != nil && step.Expect.Formulas != nil && !slices.Equal(cs.Keys, *step.Expect.Formulas) {
			result.AddError(fmt.Sprintf("passes[%d]: formulas = %v, want %v", index, cs.Keys, *step.Expect.Formulas))
		}
		return nil
	}

	report, err := h.runner.Run(ctx, h.query)
	if report == nil {
		return err
	}
	result.Reports = append(result.Reports, report)
	if err != nil {
		h.logger.Info("pass aborted", "pass_id", report.PassID, "error", err)
	}
	h.clock.Advance(passInterval)

	for _, msg := range checkReport(report, step.Expect) {
		result.AddError(fmt.Sprintf("passes[%d]: %s", index, msg))
	}
	return nil
}

// checkReport compares a pass report with the step's expectations.
func checkReport(report *pipeline.PassReport, expect *PassExpect) []string {
	if expect == nil {
		return nil
	}
	var errs []string
	if expect.Status != "" && report.Status != expect.Status {
		errs = append(errs, fmt.Sprintf("status = %s, want %s", report.Status, expect.Status))
	}
	if expect.Formulas != nil && !slices.Equal(report.Formulas, *expect.Formulas) {
		errs = append(errs, fmt.Sprintf("formulas = %v, want %v", report.Formulas, *expect.Formulas))
	}
	counts := []struct {
		name string
		got  int
		want *int
	}{
		{"written", report.Written, expect.Written},
		{"unchanged", report.Unchanged, expect.Unchanged},
		{"dropped", report.Dropped, expect.Dropped},
		{"failures", len(report.Failures), expect.Failures},
	}
	for _, c := range counts {
		if c.want != nil && c.got != *c.want {
			errs = append(errs, fmt.Sprintf("%s = %d, want %d", c.name, c.got, *c.want))
		}
	}
	return errs
}

// loadMolecules reads every stored document ordered by id.
func loadMolecules(ctx context.Context, st *store.Store) ([]map[string]any, error) {
	rows, err := st.DB().QueryContext(ctx, `SELECT id FROM molecules ORDER BY id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("list molecules: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("list molecules: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list molecules: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("list molecules: %w", err)
	}

	docs := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		doc, err := st.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
