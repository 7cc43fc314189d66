package filter

import (
	"fmt"
	"sort"
	"time"

	"github.com/roach88/molbuild/internal/mol"
)

// Filterable task columns.
const (
	FieldTaskID      = "task_id"
	FieldFormula     = "formula"
	FieldState       = "state"
	FieldLastUpdated = "last_updated"
)

// StateSuccessful is the task state eligible for aggregation.
const StateSuccessful = "successful"

var stringFields = map[string]bool{
	FieldTaskID:  true,
	FieldFormula: true,
	FieldState:   true,
}

// IsStringField reports whether field is a filterable text column.
func IsStringField(field string) bool {
	return stringFields[field]
}

// Predicate is a filter condition over task columns.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Equals matches tasks whose column equals Value.
type Equals struct {
	Field string
	Value string
}

// In matches tasks whose column is one of Values.
type In struct {
	Field  string
	Values []string
}

// After matches tasks whose last_updated is strictly later than Time.
type After struct {
	Field string
	Time  time.Time
}

// And matches tasks satisfying every predicate.
type And struct {
	Predicates []Predicate
}

func (Equals) predicateNode() {}
func (In) predicateNode()     {}
func (After) predicateNode()  {}
func (And) predicateNode()    {}

// All conjoins predicates, dropping nils and flattening nested And nodes.
// It returns nil when nothing remains.
func All(preds ...Predicate) Predicate {
	var flat []Predicate
	for _, p := range preds {
		switch node := p.(type) {
		case nil:
		case And:
			if inner := All(node.Predicates...); inner != nil {
				if a, ok := inner.(And); ok {
					flat = append(flat, a.Predicates...)
				} else {
					flat = append(flat, inner)
				}
			}
		default:
			flat = append(flat, p)
		}
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return And{Predicates: flat}
	}
}

// Validate checks that every node names a supported column.
func Validate(p Predicate) error {
	switch node := p.(type) {
	case nil:
		return nil
	case Equals:
		if !IsStringField(node.Field) {
			return fmt.Errorf("equals: unsupported field %q", node.Field)
		}
	case In:
		if !IsStringField(node.Field) {
			return fmt.Errorf("in: unsupported field %q", node.Field)
		}
	case After:
		if node.Field != FieldLastUpdated {
			return fmt.Errorf("after: unsupported field %q", node.Field)
		}
	case And:
		for i, inner := range node.Predicates {
			if err := Validate(inner); err != nil {
				return fmt.Errorf("and[%d]: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
	return nil
}

// Match evaluates p against a task in memory.
func Match(p Predicate, task mol.Task) bool {
	switch node := p.(type) {
	case nil:
		return true
	case Equals:
		return column(task, node.Field) == node.Value
	case In:
		v := column(task, node.Field)
		for _, want := range node.Values {
			if v == want {
				return true
			}
		}
		return false
	case After:
		return task.LastUpdated.After(node.Time)
	case And:
		for _, inner := range node.Predicates {
			if !Match(inner, task) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Column returns the text value of a filterable column of task.
func Column(task mol.Task, field string) (string, bool) {
	if !IsStringField(field) {
		return "", false
	}
	return column(task, field), true
}

func column(task mol.Task, field string) string {
	switch field {
	case FieldTaskID:
		return task.TaskID
	case FieldFormula:
		return task.Formula
	case FieldState:
		return task.State
	default:
		return ""
	}
}

// Key returns a stable digest identifying the filter. Passes are
// checkpointed per key. In lists are order-insensitive.
func Key(p Predicate) string {
	h, err := mol.ValueHash(mol.DomainFilter, encode(p))
	if err != nil {
		// encode only produces strings, lists and maps.
		panic(fmt.Sprintf("filter key: %v", err))
	}
	return h
}

func encode(p Predicate) any {
	switch node := p.(type) {
	case nil:
		return nil
	case Equals:
		return map[string]any{"eq": []any{node.Field, node.Value}}
	case In:
		vals := append([]string(nil), node.Values...)
		sort.Strings(vals)
		list := make([]any, len(vals))
		for i, v := range vals {
			list[i] = v
		}
		return map[string]any{"in": []any{node.Field, list}}
	case After:
		return map[string]any{"after": []any{node.Field, mol.FormatTime(node.Time)}}
	case And:
		list := make([]any, len(node.Predicates))
		for i, inner := range node.Predicates {
			list[i] = encode(inner)
		}
		return map[string]any{"and": list}
	default:
		return fmt.Sprintf("%T", p)
	}
}

// FromMap builds a conjunction from a config map. A string value means
// equality, a list of strings means membership. Keys are visited in sorted
// order so the result (and its Key) is deterministic.
func FromMap(m map[string]any) (Predicate, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	preds := make([]Predicate, 0, len(keys))
	for _, field := range keys {
		if !IsStringField(field) {
			return nil, fmt.Errorf("query: unsupported field %q", field)
		}
		switch v := m[field].(type) {
		case string:
			preds = append(preds, Equals{Field: field, Value: v})
		case []any:
			vals := make([]string, len(v))
			for i, elem := range v {
				s, ok := elem.(string)
				if !ok {
					return nil, fmt.Errorf("query: %s[%d] is %T, want string", field, i, elem)
				}
				vals[i] = s
			}
			preds = append(preds, In{Field: field, Values: vals})
		case []string:
			preds = append(preds, In{Field: field, Values: append([]string(nil), v...)})
		default:
			return nil, fmt.Errorf("query: %s is %T, want string or list of strings", field, v)
		}
	}
	return All(preds...), nil
}
