package mol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// DecodeJSON parses a JSON object into generic values. Numbers are decoded
// through json.Number so integers beyond 2^53 survive as int64; everything
// else becomes float64.
func DecodeJSON(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	v, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	m, _ := v.(map[string]any)
	return m, nil
}

// Normalize converts decoder output (JSON or YAML) into the value set used
// throughout this module: map[string]any, []any, string, bool, int64,
// float64 and nil. Timestamps become TimeLayout strings.
func Normalize(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, int64, float64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return float64(val), nil
		}
		return int64(val), nil
	case float32:
		return float64(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", val, err)
		}
		return f, nil
	case time.Time:
		return FormatTime(val), nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			n, err := Normalize(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			n, err := Normalize(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v (%T)", k, k)
			}
			n, err := Normalize(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", ks, err)
			}
			out[ks] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// Clone deep-copies a normalized value so documents never alias task
// payloads.
func Clone(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Clone(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	default:
		return val
	}
}

// ToFloat converts a numeric value to float64.
func ToFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int64:
		return float64(val), true
	case int:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
