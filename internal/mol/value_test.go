package mol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONNumbers(t *testing.T) {
	m, err := DecodeJSON([]byte(`{"big": 9007199254740993, "f": -76.4, "list": [1, 2.5]}`))
	require.NoError(t, err)

	assert.Equal(t, int64(9007199254740993), m["big"])
	assert.Equal(t, -76.4, m["f"])
	assert.Equal(t, []any{int64(1), 2.5}, m["list"])
}

func TestNormalizeYAMLShapes(t *testing.T) {
	in := map[string]any{
		"n":    3,
		"when": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"sub":  map[any]any{"k": float32(0.5)},
	}
	out, err := Normalize(in)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"n":    int64(3),
		"when": "2024-01-01T00:00:00.000000000Z",
		"sub":  map[string]any{"k": 0.5},
	}, out)

	_, err = Normalize(map[any]any{1: "x"})
	assert.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	orig := map[string]any{"a": []any{map[string]any{"b": int64(1)}}}
	c := Clone(orig).(map[string]any)
	c["a"].([]any)[0].(map[string]any)["b"] = int64(2)

	assert.Equal(t, int64(1), orig["a"].([]any)[0].(map[string]any)["b"])
}

func TestTimeRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 4, 5, 6, 7, 8, time.UTC)
	s := FormatTime(ts)
	assert.Equal(t, "2024-03-04T05:06:07.000000008Z", s)

	back, err := ParseTime(s)
	require.NoError(t, err)
	assert.True(t, ts.Equal(back))

	back, err = ParseTime("2024-03-04T07:06:07+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC), back)

	assert.Equal(t, "", FormatTime(time.Time{}))
}
