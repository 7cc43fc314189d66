package mol

import (
	"strconv"
	"strings"
)

// TaskKey is the structured ordering key of a task identifier.
//
// Identifiers of the form "<prefix>-<integer>" order by prefix, then by the
// integer. Purely numeric identifiers order by value and sort before every
// prefixed identifier.
type TaskKey struct {
	Numeric bool
	Prefix  string
	Number  uint64
}

// ParseTaskKey derives the ordering key for a task identifier.
// Any other shape yields a MALFORMED_TASK_ID error.
func ParseTaskKey(id string) (TaskKey, error) {
	if n, ok := parseDigits(id); ok {
		return TaskKey{Numeric: true, Number: n}, nil
	}
	i := strings.LastIndexByte(id, '-')
	if i <= 0 {
		return TaskKey{}, NewMalformedTaskIDError(id)
	}
	n, ok := parseDigits(id[i+1:])
	if !ok {
		return TaskKey{}, NewMalformedTaskIDError(id)
	}
	return TaskKey{Prefix: id[:i], Number: n}, nil
}

// Less orders keys: numeric before prefixed, then prefix, then number.
func (k TaskKey) Less(o TaskKey) bool {
	if k.Numeric != o.Numeric {
		return k.Numeric
	}
	if k.Prefix != o.Prefix {
		return k.Prefix < o.Prefix
	}
	return k.Number < o.Number
}

// CompareTaskIDs orders two well-formed identifiers, falling back to byte
// order for identifiers whose keys are equal ("eg-7" vs "eg-07").
func CompareTaskIDs(a, b string) (int, error) {
	ka, err := ParseTaskKey(a)
	if err != nil {
		return 0, err
	}
	kb, err := ParseTaskKey(b)
	if err != nil {
		return 0, err
	}
	switch {
	case ka.Less(kb):
		return -1, nil
	case kb.Less(ka):
		return 1, nil
	default:
		return strings.Compare(a, b), nil
	}
}

func parseDigits(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
