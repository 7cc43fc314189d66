package builder

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/roach88/molbuild/internal/mol"
)

// SingleGroup puts every structure in one group.
//
// Placeholder for tests only: it does not compare geometries.
type SingleGroup struct{}

// Group implements ports.Grouper.
func (SingleGroup) Group(_ context.Context, structures []mol.IndexedStructure) ([][]int, error) {
	if len(structures) == 0 {
		return nil, nil
	}
	group := make([]int, len(structures))
	for i, s := range structures {
		group[i] = s.Index
	}
	return [][]int{group}, nil
}

// ExactStructure groups structures whose canonical encodings are
// byte-identical. Groups are ordered by their first member's position in
// the input; members keep input order.
type ExactStructure struct{}

// Group implements ports.Grouper.
func (ExactStructure) Group(ctx context.Context, structures []mol.IndexedStructure) ([][]int, error) {
	type bucket struct {
		encoded []byte
		group   int
	}
	buckets := make(map[uint64][]bucket)
	var groups [][]int

	for _, s := range structures {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		encoded, err := mol.MarshalCanonical(s.Structure)
		if err != nil {
			return nil, fmt.Errorf("structure of task %s: %w", s.TaskID, err)
		}
		h := xxhash.Sum64(encoded)

		placed := false
		for _, b := range buckets[h] {
			if bytes.Equal(b.encoded, encoded) {
				groups[b.group] = append(groups[b.group], s.Index)
				placed = true
				break
			}
		}
		if !placed {
			buckets[h] = append(buckets[h], bucket{encoded: encoded, group: len(groups)})
			groups = append(groups, []int{s.Index})
		}
	}
	return groups, nil
}

// CheckPartition verifies a grouper's output against its input: every
// input index appears in exactly one non-empty group and nothing else
// does.
func CheckPartition(structures []mol.IndexedStructure, groups [][]int) error {
	want := make(map[int]bool, len(structures))
	for _, s := range structures {
		want[s.Index] = true
	}
	if len(structures) > 0 && len(groups) == 0 {
		return fmt.Errorf("grouper returned no groups for %d structures", len(structures))
	}

	seen := make(map[int]bool, len(structures))
	for gi, g := range groups {
		if len(g) == 0 {
			return fmt.Errorf("group %d is empty", gi)
		}
		for _, idx := range g {
			if !want[idx] {
				return fmt.Errorf("group %d contains unknown index %d", gi, idx)
			}
			if seen[idx] {
				return fmt.Errorf("index %d appears in more than one group", idx)
			}
			seen[idx] = true
		}
	}
	if len(seen) != len(want) {
		return fmt.Errorf("grouper dropped %d of %d structures", len(want)-len(seen), len(want))
	}
	return nil
}
