package modules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyModule_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.txt")

	m := NewCopyModule()
	result, delta, err := m.Exec(nil, nil, map[string]any{"content": "hello", "dest": dest}, nil, false)
	require.NoError(t, err)
	assert.Nil(t, delta)
	assert.True(t, result.Changed)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestCopyModule_NoChangeWhenContentAndModeMatch(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(dest, []byte("hello"), 0o644))

	m := NewCopyModule()
	result, _, err := m.Exec(nil, nil, map[string]any{"content": "hello", "dest": dest, "mode": "0644"}, nil, false)
	require.NoError(t, err)
	assert.False(t, result.Changed)
}

func TestCopyModule_ChangeWhenContentDiffers(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0o644))

	m := NewCopyModule()
	result, _, err := m.Exec(nil, nil, map[string]any{"content": "new", "dest": dest}, nil, false)
	require.NoError(t, err)
	assert.True(t, result.Changed)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestCopyModule_ReadOnlyDestinationStillWritten(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0o444))

	m := NewCopyModule()
	result, _, err := m.Exec(nil, nil, map[string]any{"content": "new", "dest": dest}, nil, false)
	require.NoError(t, err)
	assert.True(t, result.Changed)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestCopyModule_CheckModeDoesNotWrite(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.txt")

	m := NewCopyModule()
	result, _, err := m.Exec(nil, nil, map[string]any{"content": "hello", "dest": dest}, nil, true)
	require.NoError(t, err)
	assert.True(t, result.Changed)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCopyModule_MissingDestIsError(t *testing.T) {
	m := NewCopyModule()
	_, _, err := m.Exec(nil, nil, map[string]any{"content": "hello"}, nil, false)
	assert.Error(t, err)
}

func TestCopyModule_InvalidModeIsError(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.txt")

	m := NewCopyModule()
	_, _, err := m.Exec(nil, nil, map[string]any{"content": "hello", "dest": dest, "mode": "nope"}, nil, false)
	assert.Error(t, err)
}

func TestParseOctalMode(t *testing.T) {
	tests := []struct {
		in   string
		want os.FileMode
	}{
		{"0644", 0o644},
		{"644", 0o644},
		{"0755", 0o755},
		{"0400", 0o400},
	}
	for _, tt := range tests {
		got, err := parseOctalMode(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestCopyModule_JSONSchemaRequiresContentAndDest(t *testing.T) {
	schema, ok := NewCopyModule().JSONSchema().(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"content", "dest"}, schema["required"])
}
