package mol

import (
	"fmt"
	"sort"
	"strings"
)

// Rule maps a value found in task records onto a molecule document field.
//
// QualityByTaskType doubles as the applicability set: a rule only extracts
// from tasks whose type appears as a key.
type Rule struct {
	TargetField       string             `json:"target_field" yaml:"target_field"`
	SourcePath        string             `json:"source_path" yaml:"source_path"`
	QualityByTaskType map[string]float64 `json:"quality_by_task_type" yaml:"quality_by_task_type"`
	Optional          bool               `json:"optional" yaml:"optional"`
	Track             bool               `json:"track" yaml:"track"`
	Aggregate         bool               `json:"aggregate" yaml:"aggregate"`
}

// Quality returns the rule's score for a task type and whether the rule
// applies to that type at all.
func (r Rule) Quality(taskType string) (float64, bool) {
	q, ok := r.QualityByTaskType[taskType]
	return q, ok
}

// RuleTable is an immutable, ordered list of rules.
type RuleTable struct {
	rules   []Rule
	allowed []string
}

// NewRuleTable validates rules and returns an immutable table.
// The input slice and its maps are copied.
func NewRuleTable(rules []Rule) (*RuleTable, error) {
	copied := make([]Rule, len(rules))
	allowedSet := make(map[string]bool)
	targets := make([]string, 0, len(rules))

	for i, r := range rules {
		if err := ValidateRule(r); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.TargetField, err)
		}
		q := make(map[string]float64, len(r.QualityByTaskType))
		for tt, score := range r.QualityByTaskType {
			q[tt] = score
			allowedSet[tt] = true
		}
		r.QualityByTaskType = q
		copied[i] = r
		targets = append(targets, r.TargetField)
	}

	if err := checkTargetPrefixes(targets); err != nil {
		return nil, err
	}

	allowed := make([]string, 0, len(allowedSet))
	for tt := range allowedSet {
		allowed = append(allowed, tt)
	}
	sort.Strings(allowed)

	return &RuleTable{rules: copied, allowed: allowed}, nil
}

// Len returns the number of rules.
func (t *RuleTable) Len() int {
	return len(t.rules)
}

// Rule returns the i-th rule in declaration order.
func (t *RuleTable) Rule(i int) Rule {
	return t.rules[i]
}

// Rules returns a copy of the rules in declaration order.
func (t *RuleTable) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// AllowedTaskTypes returns every task type named by any rule, sorted.
func (t *RuleTable) AllowedTaskTypes() []string {
	out := make([]string, len(t.allowed))
	copy(out, t.allowed)
	return out
}

// Allows reports whether any rule applies to the task type.
func (t *RuleTable) Allows(taskType string) bool {
	i := sort.SearchStrings(t.allowed, taskType)
	return i < len(t.allowed) && t.allowed[i] == taskType
}

// ValidateRule checks one rule in isolation. NewRuleTable additionally
// checks rules against each other.
func ValidateRule(r Rule) error {
	if err := ValidatePath(r.TargetField); err != nil {
		return fmt.Errorf("target_field: %w", err)
	}
	if err := ValidatePath(r.SourcePath); err != nil {
		return fmt.Errorf("source_path: %w", err)
	}
	root := r.TargetField
	if i := strings.IndexByte(root, '.'); i >= 0 {
		root = root[:i]
	}
	if ReservedKeys[root] {
		return fmt.Errorf("target_field %q uses reserved key %q", r.TargetField, root)
	}
	if len(r.QualityByTaskType) == 0 {
		return fmt.Errorf("quality_by_task_type must name at least one task type")
	}
	for tt := range r.QualityByTaskType {
		if tt == "" {
			return fmt.Errorf("quality_by_task_type has an empty task type")
		}
	}
	return nil
}

// checkTargetPrefixes rejects tables where one target field is a strict
// dotted ancestor of another ("a" and "a.b"); writing both would clobber.
func checkTargetPrefixes(targets []string) error {
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		seen[t] = true
	}
	for _, t := range targets {
		for i := 0; i < len(t); i++ {
			if t[i] == '.' && seen[t[:i]] {
				return fmt.Errorf("target_field %q is nested under target_field %q", t, t[:i])
			}
		}
	}
	return nil
}
