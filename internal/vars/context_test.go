package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertGetOrder(t *testing.T) {
	c := New()
	c.Insert("b", 2)
	c.Insert("a", 1)
	c.Insert("b", 20)

	assert.Equal(t, []string{"b", "a"}, c.Keys())
	v, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 20, v)
}

func TestMergeDeep(t *testing.T) {
	c := New()
	c.Insert("obj", map[string]any{"x": 1, "y": 2})

	other := New()
	other.Insert("obj", map[string]any{"y": 20, "z": 3})

	c.Merge(other)

	v, _ := c.Get("obj")
	m := v.(map[string]any)
	assert.Equal(t, 1, m["x"])
	assert.Equal(t, 20, m["y"])
	assert.Equal(t, 3, m["z"])
}

func TestMergeOverwritesNonObjects(t *testing.T) {
	c := New()
	c.Insert("arr", []any{1, 2})

	other := New()
	other.Insert("arr", []any{3})

	c.Merge(other)

	v, _ := c.Get("arr")
	assert.Equal(t, []any{3}, v)
}

func TestJSONRoundTrip(t *testing.T) {
	c := New()
	c.Insert("name", "host1")
	c.Insert("count", int64(3))
	c.Insert("nested", map[string]any{"ok": true})

	data, err := c.MarshalJSON()
	require.NoError(t, err)

	c2, err := FromJSON(data)
	require.NoError(t, err)

	v1, _ := c.Get("name")
	v2, _ := c2.Get("name")
	assert.Equal(t, v1, v2)

	v1, _ = c.Get("count")
	v2, _ = c2.Get("count")
	assert.Equal(t, v1, v2)
}

func TestCloneIsIndependent(t *testing.T) {
	c := New()
	c.Insert("obj", map[string]any{"x": 1})

	clone := c.Clone()
	m := clone.GetOr("obj", nil).(map[string]any)
	m["x"] = 99

	orig := c.GetOr("obj", nil).(map[string]any)
	assert.Equal(t, 1, orig["x"])
}

func TestDelete(t *testing.T) {
	c := New()
	c.Insert("a", 1)
	c.Insert("b", 2)
	c.Delete("a")

	assert.Equal(t, []string{"b"}, c.Keys())
	_, ok := c.Get("a")
	assert.False(t, ok)
}
