// Package rules loads rule tables from CUE, YAML or JSON sources.
//
// CUE sources are unified with an embedded schema (#Rule) so type errors
// and unknown fields are reported with file positions. YAML and JSON
// sources are decoded strictly. Every source ends in mol.NewRuleTable, which
// enforces the cross-rule invariants.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/molbuild/internal/mol"
)

//go:embed schema.cue
var schemaSource []byte

//go:embed default_rules.cue
var defaultSource []byte

// DefaultName is the display name of the embedded rule table.
const DefaultName = "default_rules.cue"

// Load error codes, shared with the CLI.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeLoadFailed  = "E004" // Source could not be read or parsed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE schema unification failed
	ErrCodeFormat      = "E007" // Unsupported file extension

	ErrCodeInvalidRule  = "E201" // A single rule is invalid
	ErrCodeInvalidTable = "E202" // Rules conflict with each other
)

// LoadError is a rule-table load failure with an optional CUE position.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode extracts the load error code from err, or ErrCodeGeneric.
func ErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}

// Default returns the embedded rule table.
func Default() (*mol.RuleTable, error) {
	return LoadCUE(DefaultName, defaultSource)
}

// DefaultSource returns the embedded rule table source.
func DefaultSource() []byte {
	return append([]byte(nil), defaultSource...)
}

// Load reads a rule table from path, choosing the decoder by extension.
// An empty path selects the embedded default.
func Load(path string) (*mol.RuleTable, error) {
	if path == "" {
		return Default()
	}
	src, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rule table not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading rule table: %v", err)}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return LoadCUE(path, src)
	case ".yaml", ".yml", ".json":
		return LoadYAML(path, src)
	default:
		return nil, &LoadError{Code: ErrCodeFormat, Message: fmt.Sprintf("unsupported rule table format %q (want .cue, .yaml, .yml or .json)", filepath.Ext(path))}
	}
}

// LoadCUE compiles a CUE rule table and validates it against the schema.
func LoadCUE(filename string, src []byte) (*mol.RuleTable, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("rule schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(ErrCodeLoadFailed, err)
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(ErrCodeBuildFailed, err)
	}

	rulesVal := unified.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, &LoadError{Code: ErrCodeInvalidTable, Message: "no rules defined", Pos: v.Pos()}
	}
	iter, err := rulesVal.List()
	if err != nil {
		return nil, formatCUEError(ErrCodeBuildFailed, err)
	}

	var rules []mol.Rule
	for i := 0; iter.Next(); i++ {
		elem := iter.Value()
		r, err := decodeRule(elem)
		if err != nil {
			return nil, err
		}
		if err := mol.ValidateRule(r); err != nil {
			return nil, &LoadError{Code: ErrCodeInvalidRule, Message: fmt.Sprintf("rule %d: %v", i, err), Pos: elem.Pos()}
		}
		rules = append(rules, r)
	}
	return newTable(rules)
}

// decodeRule reads one schema-validated rule value.
func decodeRule(v cue.Value) (mol.Rule, error) {
	var r mol.Rule
	var err error

	if r.TargetField, err = stringField(v, "target_field"); err != nil {
		return r, err
	}
	if r.SourcePath, err = stringField(v, "source_path"); err != nil {
		return r, err
	}
	if r.Optional, err = boolField(v, "optional"); err != nil {
		return r, err
	}
	if r.Track, err = boolField(v, "track"); err != nil {
		return r, err
	}
	if r.Aggregate, err = boolField(v, "aggregate"); err != nil {
		return r, err
	}

	iter, err := v.LookupPath(cue.ParsePath("quality_by_task_type")).Fields()
	if err != nil {
		return r, formatCUEError(ErrCodeBuildFailed, err)
	}
	r.QualityByTaskType = make(map[string]float64)
	for iter.Next() {
		score, err := iter.Value().Float64()
		if err != nil {
			return r, formatCUEError(ErrCodeBuildFailed, err)
		}
		r.QualityByTaskType[iter.Selector().Unquoted()] = score
	}
	return r, nil
}

func stringField(v cue.Value, name string) (string, error) {
	s, err := v.LookupPath(cue.ParsePath(name)).String()
	if err != nil {
		return "", formatCUEError(ErrCodeBuildFailed, err)
	}
	return s, nil
}

func boolField(v cue.Value, name string) (bool, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if d, ok := f.Default(); ok {
		f = d
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(ErrCodeBuildFailed, err)
	}
	return b, nil
}

func newTable(rules []mol.Rule) (*mol.RuleTable, error) {
	if len(rules) == 0 {
		return nil, &LoadError{Code: ErrCodeInvalidTable, Message: "no rules defined"}
	}
	table, err := mol.NewRuleTable(rules)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidTable, Message: err.Error()}
	}
	return table, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(code string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}

	first := errs[0]
	le := &LoadError{Code: code, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
