package mol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	doc := map[string]any{
		"output": map[string]any{
			"energy": -76.4,
			"sites":  []any{map[string]any{"name": "O"}, map[string]any{"name": "H"}},
			"nil":    nil,
		},
	}

	v, ok := Get(doc, "output.energy")
	assert.True(t, ok)
	assert.Equal(t, -76.4, v)

	v, ok = Get(doc, "output.sites.1.name")
	assert.True(t, ok)
	assert.Equal(t, "H", v)

	_, ok = Get(doc, "output.sites.2.name")
	assert.False(t, ok)

	_, ok = Get(doc, "output.energy.value")
	assert.False(t, ok)

	_, ok = Get(doc, "missing")
	assert.False(t, ok)

	v, ok = Get(doc, "output.nil")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestSetCreatesIntermediates(t *testing.T) {
	doc := map[string]any{"a": "scalar"}
	Set(doc, "a.b.c", int64(1))
	Set(doc, "x", true)

	assert.Equal(t, map[string]any{
		"a": map[string]any{"b": map[string]any{"c": int64(1)}},
		"x": true,
	}, doc)
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath("a.b"))
	assert.Error(t, ValidatePath(""))
	assert.Error(t, ValidatePath("a..b"))
	assert.Error(t, ValidatePath(".a"))
}
