package mol

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"null", nil, "null"},
		{"int", int64(42), "42"},
		{"negative int", int64(-100), "-100"},
		{"max int64", int64(math.MaxInt64), "9223372036854775807"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"array of ints", []any{int64(1), int64(2), int64(3)}, "[1,2,3]"},
		{"simple object", map[string]any{"a": int64(1)}, `{"a":1}`},
		{"string slice", []string{"b", "a"}, `["b","a"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalFloats(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-76.4, "-76.4"},
		{-76.412345678912, "-76.412345678912"},
		// Shortest round-trip form of the nearest double.
		{-76.41234567891234, "-76.41234567891235"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{0.000001, "0.000001"},
		{1e-7, "1e-7"},
		{-2.5e-10, "-2.5e-10"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalRejectsNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := MarshalCanonical(map[string]any{"energy": f})
		assert.Error(t, err)
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": int64(1),
		"alpha": int64(2),
		"beta":  map[string]any{"y": true, "x": false},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"x":false,"y":true},"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+10000 encodes as a surrogate pair (0xD800 0xDC00), which sorts
	// before U+E000 in UTF-16 even though UTF-8 bytes say otherwise.
	obj := map[string]any{
		"\uE000":     int64(1),
		"\U00010000": int64(2),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical("<a&b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" + combining acute accent normalizes to U+00E9.
	result, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(result))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	// A literal backslash before "u2028" text stays escaped.
	result, err = MarshalCanonical(`x\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028"`, string(result))
}

func TestMarshalCanonicalControlCharacters(t *testing.T) {
	result, err := MarshalCanonical("a\nb\tc\"")
	require.NoError(t, err)
	assert.Equal(t, `"a\nb\tc\""`, string(result))
}

func TestMarshalCanonicalUnsupportedType(t *testing.T) {
	_, err := MarshalCanonical(struct{}{})
	assert.Error(t, err)
}
