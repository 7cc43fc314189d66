package builder

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/roach88/molbuild/internal/classify"
	"github.com/roach88/molbuild/internal/mol"
	"github.com/roach88/molbuild/internal/ports"
	"github.com/roach88/molbuild/internal/ports/mocks"
	"github.com/roach88/molbuild/internal/testutil"
)

var stamp = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

// testRules is a compact table covering tracked, untracked, optional and
// aggregated fields.
func testRules(t *testing.T) *mol.RuleTable {
	t.Helper()

	structOpt := testutil.Rule("structure", "output.optimized_molecule", classify.GeometryOptimization, 2)
	structOpt.Track = true
	structInit := testutil.Rule("structure", "output.initial_molecule", classify.SinglePoint, 1)
	structInit.Track = true
	energy := testutil.Rule("energy", "output.energy", classify.SinglePoint, 3, classify.GeometryOptimization, 2)
	energy.Track = true
	method := testutil.Rule("level_of_theory.method", "orig.rem.method", classify.SinglePoint, 3, classify.GeometryOptimization, 2)
	method.Optional = true
	energies := testutil.Rule("energies", "output.energy", classify.SinglePoint, 3, classify.GeometryOptimization, 2)
	energies.Optional = true
	energies.Aggregate = true

	table, err := mol.NewRuleTable([]mol.Rule{structOpt, structInit, energy, method, energies})
	require.NoError(t, err)
	return table
}

func waterTasks() []mol.Task {
	return []mol.Task{
		testutil.Task(testutil.TaskSpec{
			ID: "mol-3", Formula: "H2O", JobType: "opt", LastUpdated: testutil.Day(3),
			Energy: testutil.Energy(-76.4), Initial: testutil.Water(0.93), Optimized: testutil.Water(0.95),
			Method: "wb97x-d",
		}),
		testutil.Task(testutil.TaskSpec{
			ID: "mol-12", Formula: "H2O", JobType: "sp", LastUpdated: testutil.Day(5),
			Energy: testutil.Energy(-76.45), Initial: testutil.Water(0.93),
			Method: "wb97m-v",
		}),
	}
}

func newTestBuilder(t *testing.T, grouper ports.Grouper, opts ...Option) (*Builder, *bytes.Buffer) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts = append([]Option{WithLogger(logger)}, opts...)
	return New(testRules(t), classify.JobType{}, grouper, opts...), &logs
}

func TestBuildBatchGolden(t *testing.T) {
	b, _ := newTestBuilder(t, ExactStructure{})

	res, err := b.BuildBatch(context.Background(), "H2O", waterTasks(), stamp)
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, 2, res.Tasks)
	assert.Equal(t, 1, res.Groups)
	assert.Zero(t, res.Dropped)
	assert.Zero(t, res.Skipped)

	out, err := mol.MarshalCanonical(res.Documents[0].Map())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "water_document", out)
}

func TestBuildBatchIdempotent(t *testing.T) {
	b, _ := newTestBuilder(t, ExactStructure{})

	first, err := b.BuildBatch(context.Background(), "H2O", waterTasks(), stamp)
	require.NoError(t, err)
	second, err := b.BuildBatch(context.Background(), "H2O", waterTasks(), stamp.Add(24*time.Hour))
	require.NoError(t, err)

	require.Len(t, first.Documents, 1)
	require.Len(t, second.Documents, 1)

	a, c := first.Documents[0], second.Documents[0]
	assert.NotEqual(t, a.BuiltAt, c.BuiltAt)

	c.BuiltAt = a.BuiltAt
	if diff := cmp.Diff(a, c); diff != "" {
		t.Errorf("rebuilt document differs (-first +second):\n%s", diff)
	}

	ha, err := mol.ContentHash(first.Documents[0])
	require.NoError(t, err)
	hc, err := mol.ContentHash(second.Documents[0])
	require.NoError(t, err)
	assert.Equal(t, ha, hc)
}

func TestBuildBatchInputOrderIrrelevant(t *testing.T) {
	b, _ := newTestBuilder(t, SingleGroup{})

	tasks := waterTasks()
	forward, err := b.BuildBatch(context.Background(), "H2O", tasks, stamp)
	require.NoError(t, err)

	reversed := []mol.Task{tasks[1], tasks[0]}
	backward, err := b.BuildBatch(context.Background(), "H2O", reversed, stamp)
	require.NoError(t, err)

	if diff := cmp.Diff(forward.Documents, backward.Documents); diff != "" {
		t.Errorf("documents depend on input order (-forward +backward):\n%s", diff)
	}
}

func TestBuildBatchSeparatesDistinctStructures(t *testing.T) {
	b, _ := newTestBuilder(t, ExactStructure{})

	tasks := append(waterTasks(), testutil.Task(testutil.TaskSpec{
		ID: "mol-7", Formula: "H2O", JobType: "sp", LastUpdated: testutil.Day(4),
		Energy: testutil.Energy(-76.2), Initial: testutil.Water(1.10),
	}))

	res, err := b.BuildBatch(context.Background(), "H2O", tasks, stamp)
	require.NoError(t, err)
	require.Len(t, res.Documents, 2)

	assert.Equal(t, "mol-3", res.Documents[0].ID)
	assert.Equal(t, []string{"mol-3", "mol-12"}, res.Documents[0].TaskIDs)
	assert.Equal(t, "mol-7", res.Documents[1].ID)
	assert.Equal(t, []string{"mol-7"}, res.Documents[1].TaskIDs)
}

func TestBuildBatchDropsDocumentWithoutStructure(t *testing.T) {
	// The grouper reads input_structure, but the only structure rule for
	// single points reads output.initial_molecule, which is absent.
	b, logs := newTestBuilder(t, SingleGroup{}, WithStructurePath("input_structure"))

	task := testutil.Task(testutil.TaskSpec{
		ID: "mol-1", Formula: "H2O", JobType: "sp", LastUpdated: testutil.Day(1),
		Energy: testutil.Energy(-76.0),
	})
	task.Doc["input_structure"] = testutil.Water(0.93)

	res, err := b.BuildBatch(context.Background(), "H2O", []mol.Task{task}, stamp)
	require.NoError(t, err)
	assert.Empty(t, res.Documents)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 1, res.Misses)
	assert.Contains(t, logs.String(), "dropping invalid document")
	assert.Contains(t, logs.String(), "failed getting output.initial_molecule")
}

func TestBuildBatchSkipsGroupWithMalformedID(t *testing.T) {
	b, logs := newTestBuilder(t, ExactStructure{})

	tasks := append(waterTasks(), testutil.Task(testutil.TaskSpec{
		ID: "legacy_7", Formula: "H2O", JobType: "sp", LastUpdated: testutil.Day(4),
		Energy: testutil.Energy(-76.2), Initial: testutil.Water(1.10),
	}))

	res, err := b.BuildBatch(context.Background(), "H2O", tasks, stamp)
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "mol-3", res.Documents[0].ID)
	assert.Equal(t, 1, res.Skipped)
	assert.Contains(t, logs.String(), "MALFORMED_TASK_ID")
}

func TestBuildBatchFiltersTasks(t *testing.T) {
	b, logs := newTestBuilder(t, SingleGroup{})

	freq := testutil.Task(testutil.TaskSpec{
		ID: "mol-20", Formula: "H2O", JobType: "freq", LastUpdated: testutil.Day(6),
		Initial: testutil.Water(0.93),
	})
	noStructure := testutil.Task(testutil.TaskSpec{
		ID: "mol-21", Formula: "H2O", JobType: "sp", LastUpdated: testutil.Day(6),
	})
	unclassifiable := testutil.Task(testutil.TaskSpec{ID: "mol-22", Formula: "H2O", Initial: testutil.Water(0.93)})
	delete(unclassifiable.Doc, "orig")

	tasks := append(waterTasks(), freq, noStructure, unclassifiable)
	res, err := b.BuildBatch(context.Background(), "H2O", tasks, stamp)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Tasks)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, []string{"mol-3", "mol-12"}, res.Documents[0].TaskIDs)
	assert.Contains(t, logs.String(), "task has no structure")
	assert.Contains(t, logs.String(), "classification failed")
}

func TestBuildBatchGroupingContractViolation(t *testing.T) {
	ctrl := gomock.NewController(t)
	grouper := mocks.NewMockGrouper(ctrl)
	grouper.EXPECT().Group(gomock.Any(), gomock.Any()).Return([][]int{}, nil)

	b, _ := newTestBuilder(t, grouper)
	_, err := b.BuildBatch(context.Background(), "H2O", waterTasks(), stamp)
	require.Error(t, err)
	assert.True(t, mol.IsGroupingFailed(err))
}

func TestBuildBatchGrouperError(t *testing.T) {
	ctrl := gomock.NewController(t)
	grouper := mocks.NewMockGrouper(ctrl)
	grouper.EXPECT().Group(gomock.Any(), gomock.Any()).Return(nil, errors.New("geometry backend down"))

	b, _ := newTestBuilder(t, grouper)
	_, err := b.BuildBatch(context.Background(), "H2O", waterTasks(), stamp)
	require.Error(t, err)
	assert.True(t, mol.IsGroupingFailed(err))
	assert.Contains(t, err.Error(), "geometry backend down")
}

func TestBuildBatchUsesClassifier(t *testing.T) {
	ctrl := gomock.NewController(t)
	classifier := mocks.NewMockClassifier(ctrl)
	classifier.EXPECT().Classify(gomock.Any()).Return(classify.SinglePoint, nil).Times(2)

	b := New(testRules(t), classifier, SingleGroup{})
	res, err := b.BuildBatch(context.Background(), "H2O", waterTasks(), stamp)
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, map[string]string{"mol-3": classify.SinglePoint, "mol-12": classify.SinglePoint}, res.Documents[0].TaskTypes)
}

func TestBuildBatchEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	grouper := mocks.NewMockGrouper(ctrl) // must not be called

	b, _ := newTestBuilder(t, grouper)
	res, err := b.BuildBatch(context.Background(), "H2O", nil, stamp)
	require.NoError(t, err)
	assert.Empty(t, res.Documents)
}
