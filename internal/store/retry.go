package store

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/roach88/molbuild/internal/filter"
	"github.com/roach88/molbuild/internal/mol"
	"github.com/roach88/molbuild/internal/ports"
)

// RetryPolicy bounds how store calls are retried.
type RetryPolicy struct {
	MaxAttempts    int           // total attempts including the first
	InitialBackoff time.Duration // doubled after each failed attempt
	MaxBackoff     time.Duration
	RateLimit      float64 // attempts per second across all calls; 0 = unlimited
	Burst          int
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    5,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		RateLimit:      50,
		Burst:          10,
	}
}

// Retrier runs store operations with rate limiting and exponential backoff.
// Only errors classified by IsTransient are retried. When attempts run out
// the last error is returned as a STORE_UNAVAILABLE error.
type Retrier struct {
	policy  RetryPolicy
	limiter *rate.Limiter
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// RetrierOption configures a Retrier.
type RetrierOption func(*Retrier)

// WithRetryLogger sets the logger used for retry warnings.
func WithRetryLogger(l *slog.Logger) RetrierOption {
	return func(r *Retrier) {
		r.logger = l
	}
}

// WithSleep replaces the backoff sleep. Tests use it to avoid waiting.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) RetrierOption {
	return func(r *Retrier) {
		r.sleep = sleep
	}
}

// NewRetrier creates a retrier. Zero policy fields take their defaults.
func NewRetrier(policy RetryPolicy, opts ...RetrierOption) *Retrier {
	def := DefaultRetryPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = def.InitialBackoff
	}
	if policy.MaxBackoff <= 0 {
		policy.MaxBackoff = def.MaxBackoff
	}

	limit := rate.Inf
	if policy.RateLimit > 0 {
		limit = rate.Limit(policy.RateLimit)
	}
	burst := policy.Burst
	if burst <= 0 {
		burst = 1
	}

	r := &Retrier{
		policy:  policy,
		limiter: rate.NewLimiter(limit, burst),
		logger:  slog.Default(),
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs fn until it succeeds, fails permanently, or attempts run out.
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := r.policy.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limiter: %w", op, err)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err

		if attempt == r.policy.MaxAttempts {
			break
		}
		r.logger.Warn("retrying store operation",
			"op", op,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if err := r.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = min(backoff*2, r.policy.MaxBackoff)
	}
	return mol.NewStoreError(fmt.Sprintf("%s failed after %d attempts", op, r.policy.MaxAttempts), lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryingTaskStore wraps a TaskStore with a Retrier. Query results are
// materialized inside the retried call so a transient failure mid-scan
// restarts the scan instead of yielding a partial result.
type RetryingTaskStore struct {
	next ports.TaskStore
	r    *Retrier
}

var _ ports.TaskStore = (*RetryingTaskStore)(nil)

// NewRetryingTaskStore wraps next.
func NewRetryingTaskStore(next ports.TaskStore, r *Retrier) *RetryingTaskStore {
	return &RetryingTaskStore{next: next, r: r}
}

// Distinct implements ports.TaskStore.
func (s *RetryingTaskStore) Distinct(ctx context.Context, field string, p filter.Predicate) ([]string, error) {
	var out []string
	err := s.r.Do(ctx, "distinct "+field, func(ctx context.Context) error {
		var err error
		out, err = s.next.Distinct(ctx, field, p)
		return err
	})
	return out, err
}

// Query implements ports.TaskStore.
func (s *RetryingTaskStore) Query(ctx context.Context, p filter.Predicate) iter.Seq2[mol.Task, error] {
	return func(yield func(mol.Task, error) bool) {
		var tasks []mol.Task
		err := s.r.Do(ctx, "query tasks", func(ctx context.Context) error {
			tasks = tasks[:0]
			for t, err := range s.next.Query(ctx, p) {
				if err != nil {
					return err
				}
				tasks = append(tasks, t)
			}
			return nil
		})
		if err != nil {
			yield(mol.Task{}, err)
			return
		}
		for _, t := range tasks {
			if !yield(t, nil) {
				return
			}
		}
	}
}

// RetryingMoleculeStore wraps a MoleculeStore with a Retrier. Upsert is
// safe to repeat because each call is one transaction.
type RetryingMoleculeStore struct {
	next ports.MoleculeStore
	r    *Retrier
}

var _ ports.MoleculeStore = (*RetryingMoleculeStore)(nil)

// NewRetryingMoleculeStore wraps next.
func NewRetryingMoleculeStore(next ports.MoleculeStore, r *Retrier) *RetryingMoleculeStore {
	return &RetryingMoleculeStore{next: next, r: r}
}

// DistinctTaskIDs implements ports.MoleculeStore.
func (s *RetryingMoleculeStore) DistinctTaskIDs(ctx context.Context) ([]string, error) {
	var out []string
	err := s.r.Do(ctx, "distinct task ids", func(ctx context.Context) error {
		var err error
		out, err = s.next.DistinctTaskIDs(ctx)
		return err
	})
	return out, err
}

// Checkpoint implements ports.MoleculeStore.
func (s *RetryingMoleculeStore) Checkpoint(ctx context.Context, filterKey string) (time.Time, bool, error) {
	var (
		cp time.Time
		ok bool
	)
	err := s.r.Do(ctx, "checkpoint", func(ctx context.Context) error {
		var err error
		cp, ok, err = s.next.Checkpoint(ctx, filterKey)
		return err
	})
	return cp, ok, err
}

// Upsert implements ports.MoleculeStore.
func (s *RetryingMoleculeStore) Upsert(ctx context.Context, docs []*mol.Document, stamp time.Time) (mol.UpsertResult, error) {
	var res mol.UpsertResult
	err := s.r.Do(ctx, "upsert molecules", func(ctx context.Context) error {
		var err error
		res, err = s.next.Upsert(ctx, docs, stamp)
		return err
	})
	return res, err
}

// RecordPass implements ports.MoleculeStore.
func (s *RetryingMoleculeStore) RecordPass(ctx context.Context, rec mol.PassRecord) error {
	return s.r.Do(ctx, "record pass", func(ctx context.Context) error {
		return s.next.RecordPass(ctx, rec)
	})
}

// Get implements ports.MoleculeStore.
func (s *RetryingMoleculeStore) Get(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	err := s.r.Do(ctx, "get molecule", func(ctx context.Context) error {
		var err error
		out, err = s.next.Get(ctx, id)
		return err
	})
	return out, err
}
