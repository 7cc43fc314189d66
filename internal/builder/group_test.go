package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/molbuild/internal/mol"
	"github.com/roach88/molbuild/internal/testutil"
)

func indexed(structures ...map[string]any) []mol.IndexedStructure {
	out := make([]mol.IndexedStructure, len(structures))
	for i, s := range structures {
		out[i] = mol.IndexedStructure{Index: i, TaskID: "t-" + string(rune('a'+i)), Structure: s}
	}
	return out
}

func TestExactStructure(t *testing.T) {
	in := indexed(testutil.Water(0.93), testutil.Methane(), testutil.Water(0.93), testutil.Water(1.0))

	groups, err := ExactStructure{}.Group(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 2}, {1}, {3}}, groups)
	assert.NoError(t, CheckPartition(in, groups))
}

func TestExactStructureDeterministic(t *testing.T) {
	in := indexed(testutil.Water(0.93), testutil.Water(1.0), testutil.Water(0.93))

	first, err := ExactStructure{}.Group(context.Background(), in)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := ExactStructure{}.Group(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestExactStructureCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ExactStructure{}.Group(ctx, indexed(testutil.Water(0.93)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSingleGroup(t *testing.T) {
	in := indexed(testutil.Water(0.93), testutil.Methane())
	groups, err := SingleGroup{}.Group(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}}, groups)

	groups, err = SingleGroup{}.Group(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestCheckPartition(t *testing.T) {
	in := indexed(testutil.Water(0.93), testutil.Water(0.93), testutil.Methane())

	tests := []struct {
		name   string
		groups [][]int
		ok     bool
	}{
		{"valid", [][]int{{0, 1}, {2}}, true},
		{"no groups", nil, false},
		{"empty group", [][]int{{0, 1, 2}, {}}, false},
		{"dropped index", [][]int{{0, 1}}, false},
		{"duplicate index", [][]int{{0, 1}, {1, 2}}, false},
		{"unknown index", [][]int{{0, 1, 2, 3}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPartition(in, tt.groups)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	assert.NoError(t, CheckPartition(nil, nil))
}
