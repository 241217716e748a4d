package modules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rash-sh/rash-go/internal/vars"
)

func TestTemplateModule_RendersContentAgainstContext(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.tmpl")
	dest := filepath.Join(dir, "out.conf")
	require.NoError(t, os.WriteFile(src, []byte("host={{ host }}\nport={{ port }}\n"), 0o644))

	v := vars.New()
	v.Insert("host", "example.com")
	v.Insert("port", 8080)

	m := NewTemplateModule()
	result, _, err := m.Exec(nil, nil, map[string]any{"src": src, "dest": dest}, v, false)
	require.NoError(t, err)
	assert.True(t, result.Changed)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "host=example.com\nport=8080\n", string(got))
}

func TestTemplateModule_NoChangeWhenRenderedOutputMatches(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.tmpl")
	dest := filepath.Join(dir, "out.conf")
	require.NoError(t, os.WriteFile(src, []byte("static content"), 0o644))
	require.NoError(t, os.WriteFile(dest, []byte("static content"), 0o644))

	v := vars.New()
	m := NewTemplateModule()
	result, _, err := m.Exec(nil, nil, map[string]any{"src": src, "dest": dest, "mode": "0644"}, v, false)
	require.NoError(t, err)
	assert.False(t, result.Changed)
}

func TestTemplateModule_CheckModeDoesNotWrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.tmpl")
	dest := filepath.Join(dir, "out.conf")
	require.NoError(t, os.WriteFile(src, []byte("hello {{ name }}"), 0o644))

	v := vars.New()
	v.Insert("name", "world")

	m := NewTemplateModule()
	result, _, err := m.Exec(nil, nil, map[string]any{"src": src, "dest": dest}, v, true)
	require.NoError(t, err)
	assert.True(t, result.Changed)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestTemplateModule_MissingSrcIsError(t *testing.T) {
	m := NewTemplateModule()
	_, _, err := m.Exec(nil, nil, map[string]any{"dest": filepath.Join(t.TempDir(), "out")}, vars.New(), false)
	assert.Error(t, err)
}
