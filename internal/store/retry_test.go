package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/roach88/molbuild/internal/filter"
	"github.com/roach88/molbuild/internal/mol"
	"github.com/roach88/molbuild/internal/ports/mocks"
)

var errBusy = fmt.Errorf("upsert: %w", sqlite3.Error{Code: sqlite3.ErrBusy})

// newTestRetrier records requested backoffs instead of sleeping.
func newTestRetrier(attempts int) (*Retrier, *[]time.Duration, *bytes.Buffer) {
	var (
		sleeps []time.Duration
		logs   bytes.Buffer
	)
	r := NewRetrier(RetryPolicy{
		MaxAttempts:    attempts,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     25 * time.Millisecond,
	},
		WithRetryLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		WithSleep(func(_ context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		}),
	)
	return r, &sleeps, &logs
}

func TestRetrierRetriesTransient(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockMoleculeStore(ctrl)
	r, sleeps, logs := newTestRetrier(5)
	s := NewRetryingMoleculeStore(next, r)

	stamp := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	gomock.InOrder(
		next.EXPECT().Upsert(gomock.Any(), gomock.Nil(), stamp).Return(mol.UpsertResult{}, errBusy),
		next.EXPECT().Upsert(gomock.Any(), gomock.Nil(), stamp).Return(mol.UpsertResult{}, errBusy),
		next.EXPECT().Upsert(gomock.Any(), gomock.Nil(), stamp).Return(mol.UpsertResult{Written: 2}, nil),
	)

	res, err := s.Upsert(context.Background(), nil, stamp)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *sleeps)
	assert.Contains(t, logs.String(), "retrying store operation")
	assert.Contains(t, logs.String(), "op=\"upsert molecules\"")
}

func TestRetrierExhaustion(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockMoleculeStore(ctrl)
	r, sleeps, _ := newTestRetrier(4)
	s := NewRetryingMoleculeStore(next, r)

	next.EXPECT().DistinctTaskIDs(gomock.Any()).Return(nil, errBusy).Times(4)

	_, err := s.DistinctTaskIDs(context.Background())
	require.Error(t, err)
	assert.True(t, mol.IsStoreUnavailable(err))
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 25 * time.Millisecond}, *sleeps)
}

func TestRetrierPermanentErrorNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockMoleculeStore(ctrl)
	r, sleeps, _ := newTestRetrier(5)
	s := NewRetryingMoleculeStore(next, r)

	permanent := errors.New("no such table: molecules")
	next.EXPECT().Get(gomock.Any(), "mol-1").Return(nil, permanent).Times(1)

	_, err := s.Get(context.Background(), "mol-1")
	assert.ErrorIs(t, err, permanent)
	assert.False(t, mol.IsStoreUnavailable(err))
	assert.Empty(t, *sleeps)
}

func TestRetrierContextCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockMoleculeStore(ctrl)
	r := NewRetrier(RetryPolicy{MaxAttempts: 3})
	s := NewRetryingMoleculeStore(next, r)

	ctx, cancel := context.WithCancel(context.Background())
	next.EXPECT().RecordPass(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, mol.PassRecord) error {
		cancel()
		return errBusy
	})

	err := s.RecordPass(ctx, mol.PassRecord{PassID: "p1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryingTaskStoreRestartsScan(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockTaskStore(ctrl)
	r, _, _ := newTestRetrier(3)
	s := NewRetryingTaskStore(next, r)

	p := filter.Equals{Field: filter.FieldFormula, Value: "H2O"}
	failing := iter.Seq2[mol.Task, error](func(yield func(mol.Task, error) bool) {
		if !yield(mol.Task{TaskID: "mol-1"}, nil) {
			return
		}
		yield(mol.Task{}, errBusy)
	})
	ok := iter.Seq2[mol.Task, error](func(yield func(mol.Task, error) bool) {
		for _, id := range []string{"mol-1", "mol-2"} {
			if !yield(mol.Task{TaskID: id}, nil) {
				return
			}
		}
	})
	gomock.InOrder(
		next.EXPECT().Query(gomock.Any(), p).Return(failing),
		next.EXPECT().Query(gomock.Any(), p).Return(ok),
	)

	var ids []string
	for task, err := range s.Query(context.Background(), p) {
		require.NoError(t, err)
		ids = append(ids, task.TaskID)
	}
	assert.Equal(t, []string{"mol-1", "mol-2"}, ids)
}

func TestRetryingTaskStoreDistinct(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockTaskStore(ctrl)
	r, _, _ := newTestRetrier(3)
	s := NewRetryingTaskStore(next, r)

	gomock.InOrder(
		next.EXPECT().Distinct(gomock.Any(), filter.FieldFormula, nil).Return(nil, errBusy),
		next.EXPECT().Distinct(gomock.Any(), filter.FieldFormula, nil).Return([]string{"H2O"}, nil),
	)

	got, err := s.Distinct(context.Background(), filter.FieldFormula, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"H2O"}, got)
}

func TestNewRetrierDefaults(t *testing.T) {
	r := NewRetrier(RetryPolicy{})
	def := DefaultRetryPolicy()
	assert.Equal(t, def.MaxAttempts, r.policy.MaxAttempts)
	assert.Equal(t, def.InitialBackoff, r.policy.InitialBackoff)
	assert.Equal(t, def.MaxBackoff, r.policy.MaxBackoff)
}
