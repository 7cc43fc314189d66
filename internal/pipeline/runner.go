// Package pipeline runs build passes: detect the change set, then fetch,
// build and upsert every affected formula on a bounded worker pool.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/molbuild/internal/builder"
	"github.com/roach88/molbuild/internal/changeset"
	"github.com/roach88/molbuild/internal/filter"
	"github.com/roach88/molbuild/internal/mol"
	"github.com/roach88/molbuild/internal/ports"
)

// DefaultGroupTimeout bounds the processing of one formula.
const DefaultGroupTimeout = 2 * time.Minute

const tracerName = "github.com/roach88/molbuild/internal/pipeline"

// Clock provides the pass start time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// KeyFailure records a formula that could not be built this pass.
type KeyFailure struct {
	Formula string `json:"formula"`
	Error   string `json:"error"`
}

// PassReport summarizes one pass.
type PassReport struct {
	PassID      string       `json:"pass_id"`
	FilterKey   string       `json:"filter_key"`
	Status      string       `json:"status"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	Checkpoint  time.Time    `json:"checkpoint"`
	Formulas    []string     `json:"formulas"`
	Tasks       int          `json:"tasks"`
	Groups      int          `json:"groups"`
	Written     int          `json:"written"`
	Unchanged   int          `json:"unchanged"`
	Dropped     int          `json:"dropped"`
	Skipped     int          `json:"skipped"`
	Misses      int          `json:"misses"`
	Failures    []KeyFailure `json:"failures,omitempty"`
}

// Runner executes build passes.
type Runner struct {
	tasks        ports.TaskStore
	molecules    ports.MoleculeStore
	builder      *builder.Builder
	detector     *changeset.Detector
	workers      int
	groupTimeout time.Duration
	clock        Clock
	newPassID    func() (string, error)
	metrics      *Metrics
	tracer       trace.Tracer
	logger       *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers bounds the number of formulas processed concurrently.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithGroupTimeout bounds the processing of one formula.
func WithGroupTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.groupTimeout = d
		}
	}
}

// WithClock sets the clock that stamps passes.
func WithClock(c Clock) Option {
	return func(r *Runner) {
		r.clock = c
	}
}

// WithPassIDs replaces the pass id generator (UUIDv7 by default).
func WithPassIDs(gen func() (string, error)) Option {
	return func(r *Runner) {
		r.newPassID = gen
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithTracer sets the tracer. Default: the global provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) {
		r.tracer = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// New creates a Runner over the given stores and builder.
func New(tasks ports.TaskStore, molecules ports.MoleculeStore, b *builder.Builder, opts ...Option) *Runner {
	r := &Runner{
		tasks:        tasks,
		molecules:    molecules,
		builder:      b,
		workers:      runtime.NumCPU(),
		groupTimeout: DefaultGroupTimeout,
		clock:        SystemClock{},
		newPassID:    newUUIDv7,
		metrics:      NewMetrics(nil),
		tracer:       otel.Tracer(tracerName),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.detector = changeset.NewDetector(tasks, molecules, changeset.WithLogger(r.logger))
	return r
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Plan computes the change set for query without building anything.
func (r *Runner) Plan(ctx context.Context, query filter.Predicate) (*changeset.ChangeSet, error) {
	return r.detector.Detect(ctx, query)
}

// keyResult is the outcome of one formula.
type keyResult struct {
	batch     *builder.BatchResult
	upserted  mol.UpsertResult
	maxUpdate time.Time
	failure   error
}

// storeFailure marks an error that must abort the pass.
type storeFailure struct{ err error }

func (e *storeFailure) Error() string { return e.err.Error() }
func (e *storeFailure) Unwrap() error { return e.err }

// Run executes one pass over the tasks matching query.
//
// Formulas are processed concurrently. A formula whose grouping fails or
// whose processing times out is reported and the pass continues; a store
// failure aborts the pass, leaving formulas already upserted intact. The
// pass is recorded in the pass log either way.
func (r *Runner) Run(ctx context.Context, query filter.Predicate) (*PassReport, error) {
	stamp := r.clock.Now().UTC()
	passID, err := r.newPassID()
	if err != nil {
		return nil, fmt.Errorf("pass id: %w", err)
	}

	ctx, span := r.tracer.Start(ctx, "molbuild.pass", trace.WithAttributes(attribute.String("pass_id", passID)))
	defer span.End()

	report := &PassReport{PassID: passID, StartedAt: stamp, Status: mol.PassCompleted}
	r.logger.Info("molecules builder started", "pass_id", passID, "allowed_task_types", r.builder.AllowedTaskTypes())

	cs, err := r.detector.Detect(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "detect")
		r.metrics.Passes.WithLabelValues(mol.PassAborted).Inc()
		return nil, err
	}
	report.FilterKey = cs.FilterKey
	report.Formulas = cs.Keys
	span.SetAttributes(attribute.Int("formulas", len(cs.Keys)))

	results := make([]keyResult, len(cs.Keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, key := range cs.Keys {
		g.Go(func() error {
			res, err := r.processKey(gctx, cs.Query, key, stamp)
			results[i] = res
			return err
		})
	}
	runErr := g.Wait()

	failed := false
	for i, res := range results {
		if res.batch != nil {
			report.Tasks += res.batch.Tasks
			report.Groups += res.batch.Groups
			report.Dropped += res.batch.Dropped
			report.Skipped += res.batch.Skipped
			report.Misses += res.batch.Misses
		}
		report.Written += res.upserted.Written
		report.Unchanged += res.upserted.Unchanged
		if res.failure != nil {
			failed = true
			report.Failures = append(report.Failures, KeyFailure{Formula: cs.Keys[i], Error: res.failure.Error()})
		}
		if res.maxUpdate.After(report.Checkpoint) {
			report.Checkpoint = res.maxUpdate
		}
	}

	// A failed formula holds the checkpoint back so its updates are
	// selected again next pass.
	if failed || cs.Checkpoint.After(report.Checkpoint) {
		report.Checkpoint = cs.Checkpoint
	}

	if runErr != nil {
		report.Status = mol.PassAborted
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "aborted")
	}
	report.CompletedAt = r.clock.Now().UTC()

	rec := mol.PassRecord{
		PassID:      report.PassID,
		FilterKey:   report.FilterKey,
		Status:      report.Status,
		StartedAt:   report.StartedAt,
		CompletedAt: report.CompletedAt,
		Checkpoint:  report.Checkpoint,
		Processed:   report.Tasks,
		Written:     report.Written,
		Dropped:     report.Dropped,
		Failed:      len(report.Failures),
	}
	if err := r.molecules.RecordPass(context.WithoutCancel(ctx), rec); err != nil {
		if runErr == nil {
			runErr = fmt.Errorf("record pass: %w", err)
		} else {
			r.logger.Error("failed to record aborted pass", "pass_id", passID, "error", err)
		}
	}

	r.observe(report)
	r.logger.Info("molecules builder finished",
		"pass_id", passID,
		"status", report.Status,
		"formulas", len(report.Formulas),
		"written", report.Written,
		"unchanged", report.Unchanged,
		"dropped", report.Dropped,
		"failed", len(report.Failures),
	)
	if runErr != nil {
		return report, runErr
	}
	return report, nil
}

// processKey fetches, builds and upserts one formula. The returned error is
// non-nil only for failures that abort the pass.
func (r *Runner) processKey(ctx context.Context, query filter.Predicate, formula string, stamp time.Time) (keyResult, error) {
	var res keyResult
	start := time.Now()
	defer func() { r.metrics.KeyDuration.Observe(time.Since(start).Seconds()) }()

	ctx, span := r.tracer.Start(ctx, "molbuild.formula", trace.WithAttributes(attribute.String("formula", formula)))
	defer span.End()

	keyCtx, cancel := context.WithTimeout(ctx, r.groupTimeout)
	defer cancel()

	r.logger.Debug("processing formula", "formula", formula)

	var tasks []mol.Task
	for t, err := range r.tasks.Query(keyCtx, filter.All(query, filter.Equals{Field: filter.FieldFormula, Value: formula})) {
		if err != nil {
			return res, r.keyError(ctx, keyCtx, span, formula, &res, fmt.Errorf("fetch %s: %w", formula, err))
		}
		tasks = append(tasks, t)
	}
	for _, t := range tasks {
		if t.LastUpdated.After(res.maxUpdate) {
			res.maxUpdate = t.LastUpdated
		}
	}

	batch, err := r.builder.BuildBatch(keyCtx, formula, tasks, stamp)
	if err != nil {
		// Building never touches a store, so only cancellation of the
		// whole pass escalates.
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.failure = err
		r.logger.Error("formula failed", "formula", formula, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "build")
		r.metrics.Keys.WithLabelValues("failed").Inc()
		return res, nil
	}
	res.batch = batch
	span.SetAttributes(attribute.Int("tasks", batch.Tasks), attribute.Int("documents", len(batch.Documents)))

	if len(batch.Documents) > 0 {
		// The upsert is one transaction; it runs outside the formula
		// timeout so a slow commit is not abandoned half way.
		upserted, err := r.molecules.Upsert(ctx, batch.Documents, stamp)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "upsert")
			return res, &storeFailure{fmt.Errorf("upsert %s: %w", formula, err)}
		}
		res.upserted = upserted
	}
	r.metrics.Keys.WithLabelValues("built").Inc()
	return res, nil
}

// keyError classifies a fetch failure: the formula timing out is a
// per-formula failure, anything else is a store failure.
func (r *Runner) keyError(ctx, keyCtx context.Context, span trace.Span, formula string, res *keyResult, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "fetch")
	if ctx.Err() == nil && errors.Is(keyCtx.Err(), context.DeadlineExceeded) {
		res.failure = err
		r.logger.Error("formula timed out", "formula", formula, "timeout", r.groupTimeout)
		r.metrics.Keys.WithLabelValues("timeout").Inc()
		return nil
	}
	return &storeFailure{err}
}

func (r *Runner) observe(rep *PassReport) {
	r.metrics.Passes.WithLabelValues(rep.Status).Inc()
	r.metrics.Documents.WithLabelValues("written").Add(float64(rep.Written))
	r.metrics.Documents.WithLabelValues("unchanged").Add(float64(rep.Unchanged))
	r.metrics.Documents.WithLabelValues("dropped").Add(float64(rep.Dropped))
	r.metrics.Documents.WithLabelValues("skipped").Add(float64(rep.Skipped))
	r.metrics.PassDuration.Observe(rep.CompletedAt.Sub(rep.StartedAt).Seconds())
}

// IsAborted reports whether err aborted a pass because of a store failure.
func IsAborted(err error) bool {
	var sf *storeFailure
	return errors.As(err, &sf)
}
