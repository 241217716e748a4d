package template

import (
	"errors"
	"testing"

	"github.com/rash-sh/rash-go/internal/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ctxWith(kv map[string]any) *vars.Context {
	c := vars.New()
	for k, v := range kv {
		c.Insert(k, v)
	}
	return c
}

func TestRenderPlainAndSubstitution(t *testing.T) {
	r := New()
	v := ctxWith(map[string]any{"name": "web1"})

	out, err := r.Render("hello {{ name }}", v)
	require.NoError(t, err)
	assert.Equal(t, "hello web1", out)

	out, err = r.Render("no substitution here", v)
	require.NoError(t, err)
	assert.Equal(t, "no substitution here", out)
}

func TestRenderNestedPath(t *testing.T) {
	r := New()
	v := ctxWith(map[string]any{"item": map[string]any{"name": "x"}})

	out, err := r.Render("{{ item.name }}", v)
	require.NoError(t, err)
	assert.Equal(t, "x", out)
}

func TestRenderAsJSONArray(t *testing.T) {
	r := New()
	v := ctxWith(map[string]any{"items": []any{"a", "b"}})

	out, err := r.RenderAsJSON("{{ items }}", v)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, out)
}

func TestIsTruthy(t *testing.T) {
	r := New()
	v := ctxWith(map[string]any{"flag": false, "s": "false", "empty": ""})

	truthy, err := r.IsTruthy("{{ flag }}", v)
	require.NoError(t, err)
	assert.False(t, truthy)

	truthy, err = r.IsTruthy("false", v)
	require.NoError(t, err)
	assert.False(t, truthy)

	truthy, err = r.IsTruthy("{{ empty }}", v)
	require.NoError(t, err)
	assert.False(t, truthy)

	truthy, err = r.IsTruthy("item == 2", v)
	require.NoError(t, err)
	assert.True(t, truthy)
}

func TestOmitFilter(t *testing.T) {
	r := New()
	v := vars.New()

	_, err := r.Render("{{ missing | default(omit) }}", v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOmitParam))
}

func TestDefaultFilter(t *testing.T) {
	r := New()
	v := vars.New()

	out, err := r.Render(`{{ missing | default("fallback") }}`, v)
	require.NoError(t, err)
	assert.Equal(t, "fallback", out)
}

func TestLengthFilter(t *testing.T) {
	r := New()
	v := ctxWith(map[string]any{"r": map[string]any{"extra": []any{1, 2, 3}}})

	out, err := r.Render("{{ r.extra | length }}", v)
	require.NoError(t, err)
	assert.Equal(t, "3", out)
}
