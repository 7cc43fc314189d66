package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/molbuild/internal/filter"
	"github.com/roach88/molbuild/internal/mol"
)

// DefaultStart is the pass clock start when a scenario sets none.
var DefaultStart = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

// Scenario defines a build scenario: task batches, passes and the
// expected final documents.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules is a rule table path, relative to the scenario file. Empty
	// selects the embedded default table.
	Rules string `yaml:"rules,omitempty"`

	// Start is the pass clock start. Default: DefaultStart.
	Start time.Time `yaml:"start,omitempty"`

	// Query restricts every pass, in the molbuild.yaml query form.
	Query map[string]any `yaml:"query,omitempty"`

	// Passes run in order against one store.
	Passes []PassStep `yaml:"passes"`

	// Assertions validate the final store.
	Assertions []Assertion `yaml:"assertions"`
}

// PassStep ingests tasks and then runs one pass.
type PassStep struct {
	// Tasks are task records upserted before the pass.
	Tasks []map[string]any `yaml:"tasks,omitempty"`

	// At sets the pass clock for this step.
	At time.Time `yaml:"at,omitempty"`

	// DryRun only computes the change set.
	DryRun bool `yaml:"dry_run,omitempty"`

	// Expect checks the pass report. Unset fields are not checked.
	Expect *PassExpect `yaml:"expect,omitempty"`
}

// PassExpect lists expected pass report values.
type PassExpect struct {
	Status    string    `yaml:"status,omitempty"`
	Formulas  *[]string `yaml:"formulas,omitempty"`
	Written   *int      `yaml:"written,omitempty"`
	Unchanged *int      `yaml:"unchanged,omitempty"`
	Dropped   *int      `yaml:"dropped,omitempty"`
	Failures  *int      `yaml:"failures,omitempty"`
}

// Assertion validates the final store.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// ID is the molecule id (molecule, molecule_absent).
	ID string `yaml:"id,omitempty"`

	// Expect maps document paths to expected values (molecule).
	// Subset match: paths not listed are not checked.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of documents (molecule_count).
	Count int `yaml:"count,omitempty"`

	// Checkpoint is the expected recorded checkpoint (checkpoint).
	Checkpoint string `yaml:"checkpoint,omitempty"`
}

// Assertion type constants.
const (
	AssertMolecule       = "molecule"
	AssertMoleculeAbsent = "molecule_absent"
	AssertMoleculeCount  = "molecule_count"
	AssertCheckpoint     = "checkpoint"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Rules != "" && !filepath.IsAbs(scenario.Rules) {
		scenario.Rules = filepath.Join(filepath.Dir(path), scenario.Rules)
	}

	if err := normalizeScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// normalizeScenario converts YAML-decoded values to the document value set.
func normalizeScenario(s *Scenario) error {
	for i := range s.Passes {
		for j, rec := range s.Passes[i].Tasks {
			norm, err := mol.Normalize(rec)
			if err != nil {
				return fmt.Errorf("passes[%d].tasks[%d]: %w", i, j, err)
			}
			s.Passes[i].Tasks[j] = norm.(map[string]any)
		}
	}
	for i := range s.Assertions {
		if s.Assertions[i].Expect == nil {
			continue
		}
		norm, err := mol.Normalize(s.Assertions[i].Expect)
		if err != nil {
			return fmt.Errorf("assertions[%d].expect: %w", i, err)
		}
		s.Assertions[i].Expect = norm.(map[string]any)
	}
	return nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Passes) == 0 {
		return fmt.Errorf("passes list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Rules != "" {
		if _, err := os.Stat(s.Rules); os.IsNotExist(err) {
			return fmt.Errorf("rules file not found: %s", s.Rules)
		}
	}

	if len(s.Query) > 0 {
		if _, err := filter.FromMap(s.Query); err != nil {
			return err
		}
	}

	for i, step := range s.Passes {
		for j, rec := range step.Tasks {
			if _, err := mol.TaskFromRecord(rec); err != nil {
				return fmt.Errorf("passes[%d].tasks[%d]: %w", i, j, err)
			}
		}
		if step.Expect != nil && step.Expect.Status != "" &&
			step.Expect.Status != mol.PassCompleted && step.Expect.Status != mol.PassAborted {
			return fmt.Errorf("passes[%d].expect: unknown status %q", i, step.Expect.Status)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertMolecule:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for molecule", index)
		}
		for path := range a.Expect {
			if err := mol.ValidatePath(path); err != nil {
				return fmt.Errorf("assertions[%d]: expect path %q: %w", index, path, err)
			}
		}
	case AssertMoleculeAbsent:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for molecule_absent", index)
		}
	case AssertMoleculeCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for molecule_count", index)
		}
	case AssertCheckpoint:
		if _, err := mol.ParseTime(a.Checkpoint); err != nil || a.Checkpoint == "" {
			return fmt.Errorf("assertions[%d]: checkpoint must be an RFC 3339 timestamp", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
