package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/molbuild/internal/mol"
)

type yamlTable struct {
	Rules []mol.Rule `yaml:"rules"`
}

// LoadYAML decodes a YAML (or JSON) rule table. Unknown keys are errors.
func LoadYAML(filename string, src []byte) (*mol.RuleTable, error) {
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)

	var doc yamlTable
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Code: ErrCodeInvalidTable, Message: fmt.Sprintf("%s: empty rule table", filename)}
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: %v", filename, err)}
	}

	for i, r := range doc.Rules {
		if err := mol.ValidateRule(r); err != nil {
			return nil, &LoadError{Code: ErrCodeInvalidRule, Message: fmt.Sprintf("%s: rule %d: %v", filename, i, err)}
		}
	}
	return newTable(doc.Rules)
}

// MarshalYAML renders a rule table in the YAML form LoadYAML accepts.
func MarshalYAML(table *mol.RuleTable) ([]byte, error) {
	doc := yamlTable{Rules: table.Rules()}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}
	return buf.Bytes(), nil
}
