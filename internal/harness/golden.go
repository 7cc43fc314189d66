package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/molbuild/internal/mol"
)

// MoleculeSnapshot captures the final documents of a scenario execution.
type MoleculeSnapshot struct {
	ScenarioName string           `json:"scenario_name"`
	Molecules    []map[string]any `json:"molecules"`
}

// toCanonicalMap converts a snapshot to a map for canonical JSON.
func (s *MoleculeSnapshot) toCanonicalMap() map[string]any {
	docs := make([]any, len(s.Molecules))
	for i, doc := range s.Molecules {
		docs[i] = doc
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"molecules":     docs,
	}
}

// RunWithGolden executes a scenario, fails the test on any failed
// expectation, and compares the final documents against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares a result's final documents against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := MoleculeSnapshot{ScenarioName: scenarioName, Molecules: result.Molecules}
	data, err := mol.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
