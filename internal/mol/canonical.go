package mol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 style canonical JSON.
// This is the only serialization used for content digests and golden files.
//
// Differences from json.Marshal:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. Numbers use the shortest round-trip form; NaN and Inf are rejected
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		return writeCanonicalString(buf, val)
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case float64:
		s, err := formatCanonicalFloat(val)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case json.Number:
		n, err := Normalize(val)
		if err != nil {
			return err
		}
		return writeCanonical(buf, n)
	case time.Time:
		return writeCanonicalString(buf, FormatTime(val))
	case []string:
		arr := make([]any, len(val))
		for i, s := range val {
			arr[i] = s
		}
		return writeCanonicalArray(buf, arr)
	case []any:
		return writeCanonicalArray(buf, val)
	case map[string]string:
		obj := make(map[string]any, len(val))
		for k, s := range val {
			obj[k] = s
		}
		return writeCanonicalObject(buf, obj)
	case map[string]float64:
		obj := make(map[string]any, len(val))
		for k, f := range val {
			obj[k] = f
		}
		return writeCanonicalObject(buf, obj)
	case map[string]any:
		return writeCanonicalObject(buf, val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// formatCanonicalFloat follows the ECMAScript number-to-string rules that
// RFC 8785 adopts: integral values print without a fraction, exponents
// appear only outside [1e-6, 1e21).
func formatCanonicalFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite number %v is forbidden in canonical JSON", f)
	}
	if f == 0 {
		return "0", nil
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	// Go writes "1e-07"; ECMAScript writes "1e-7" and "1e+21".
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[0]
	digits := strings.TrimLeft(exp[1:], "0")
	return mant + "e" + string(sign) + digits, nil
}

// writeCanonicalString writes a JSON string with NFC normalization.
// Only control characters (U+0000-U+001F), backslash and quote are escaped.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})

	// json.Encoder escapes U+2028 and U+2029 for JavaScript; RFC 8785 does not.
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns U+2028 and U+2029 escapes back into literal
// characters unless the backslash itself is escaped (\\u2028).
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' {
			out = append(out, data[i])
			continue
		}
		// data[i] starts an escape sequence; copy escaped backslashes whole.
		if i+1 < len(data) && data[i+1] == '\\' {
			out = append(out, '\\', '\\')
			i++
			continue
		}
		if i+5 < len(data) && string(data[i+1:i+5]) == "u202" && (data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, data[i])
	}
	return out
}

func writeCanonicalArray(buf *bytes.Buffer, arr []any) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonical(buf, elem); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeCanonicalObject(buf *bytes.Buffer, obj map[string]any) error {
	buf.WriteByte('{')
	for i, k := range SortedKeys(obj) {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := writeCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// SortedKeys returns the keys of obj ordered by UTF-16 code units.
func SortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return compareUTF16(keys[i], keys[j]) < 0
	})
	return keys
}

func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			if ua[i] < ub[i] {
				return -1
			}
			return 1
		}
	}
	return len(ua) - len(ub)
}
