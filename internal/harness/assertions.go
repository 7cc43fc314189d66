package harness

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/roach88/molbuild/internal/mol"
	"github.com/roach88/molbuild/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	IDs      []string // Stored molecule ids for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "  Stored molecules: [%s]", strings.Join(e.IDs, ", "))

	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Ctx       context.Context
	Store     *store.Store
	FilterKey string
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for checkpoint assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertMolecule:
			err = assertMolecule(result, assertion)
		case AssertMoleculeAbsent:
			err = assertMoleculeAbsent(result, assertion)
		case AssertMoleculeCount:
			err = assertMoleculeCount(result, assertion)
		case AssertCheckpoint:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: checkpoint requires database context", i)
			} else {
				err = assertCheckpoint(actx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertMolecule checks that the document exists and holds every expected
// path value (subset match).
func assertMolecule(result *Result, assertion Assertion) error {
	doc := result.Molecule(assertion.ID)
	if doc == nil {
		return &AssertionError{
			Type:     AssertMolecule,
			Expected: fmt.Sprintf("molecule %s", assertion.ID),
			Actual:   "not found",
			IDs:      moleculeIDs(result),
		}
	}

	for _, path := range mol.SortedKeys(assertion.Expect) {
		want := assertion.Expect[path]
		got, ok := mol.Get(doc, path)
		if !ok {
			return &AssertionError{
				Type:     AssertMolecule,
				Expected: fmt.Sprintf("%s.%s = %s", assertion.ID, path, render(want)),
				Actual:   "path missing",
				IDs:      moleculeIDs(result),
			}
		}
		if !valuesEqual(got, want) {
			return &AssertionError{
				Type:     AssertMolecule,
				Expected: fmt.Sprintf("%s.%s = %s", assertion.ID, path, render(want)),
				Actual:   render(got),
				IDs:      moleculeIDs(result),
			}
		}
	}
	return nil
}

func assertMoleculeAbsent(result *Result, assertion Assertion) error {
	if result.Molecule(assertion.ID) != nil {
		return &AssertionError{
			Type:     AssertMoleculeAbsent,
			Expected: fmt.Sprintf("no molecule %s", assertion.ID),
			Actual:   "found",
			IDs:      moleculeIDs(result),
		}
	}
	return nil
}

func assertMoleculeCount(result *Result, assertion Assertion) error {
	if len(result.Molecules) != assertion.Count {
		return &AssertionError{
			Type:     AssertMoleculeCount,
			Expected: fmt.Sprintf("%d molecule(s)", assertion.Count),
			Actual:   fmt.Sprintf("%d molecule(s)", len(result.Molecules)),
			IDs:      moleculeIDs(result),
		}
	}
	return nil
}

func assertCheckpoint(actx *AssertionContext, assertion Assertion) error {
	want, err := mol.ParseTime(assertion.Checkpoint)
	if err != nil {
		return err
	}
	cp, ok, err := actx.Store.Checkpoint(actx.Ctx, actx.FilterKey)
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if !ok || !cp.Equal(want) {
		actual := "none"
		if ok {
			actual = mol.FormatTime(cp)
		}
		return &AssertionError{
			Type:     AssertCheckpoint,
			Expected: mol.FormatTime(want),
			Actual:   actual,
		}
	}
	return nil
}

// valuesEqual compares two document values by canonical JSON, so
// numerically equal ints and floats match.
func valuesEqual(actual, expected any) bool {
	a, err := mol.MarshalCanonical(actual)
	if err != nil {
		return false
	}
	e, err := mol.MarshalCanonical(expected)
	if err != nil {
		return false
	}
	return bytes.Equal(a, e)
}

func render(v any) string {
	data, err := mol.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func moleculeIDs(result *Result) []string {
	ids := make([]string, len(result.Molecules))
	for i, doc := range result.Molecules {
		ids[i], _ = doc[mol.KeyID].(string)
	}
	return ids
}
