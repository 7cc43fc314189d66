package ports

import (
	"context"

	"github.com/roach88/molbuild/internal/mol"
)

// Classifier derives a task type from a task's raw input metadata.
//
//go:generate go run go.uber.org/mock/mockgen -source=builder.go -destination=mocks/mock_builder.go -package=mocks
type Classifier interface {
	Classify(orig map[string]any) (string, error)
}

// Grouper partitions a formula batch into molecule instance groups.
//
// Implementations must be pure and total: deterministic for a fixed input
// set, and every input index appears in exactly one returned group.
type Grouper interface {
	Group(ctx context.Context, structures []mol.IndexedStructure) ([][]int, error)
}
