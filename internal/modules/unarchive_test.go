package modules

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestTarGz(t *testing.T, dest string, files map[string]string) {
	t.Helper()
	f, err := os.Create(dest)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
}

func TestUnarchiveModule_ExtractsTarGz(t *testing.T) {
	src := filepath.Join(t.TempDir(), "in.tar.gz")
	writeTestTarGz(t, src, map[string]string{"a.txt": "hello", "sub/b.txt": "world"})
	dest := t.TempDir()

	m := NewUnarchiveModule()
	result, _, err := m.Exec(nil, nil, map[string]any{"src": src, "dest": dest}, nil, false)
	require.NoError(t, err)
	assert.True(t, result.Changed)

	got, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	got, err = os.ReadFile(filepath.Join(dest, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "world", string(got))
}

func TestUnarchiveModule_CreatesMissingDest(t *testing.T) {
	src := filepath.Join(t.TempDir(), "in.tar.gz")
	writeTestTarGz(t, src, map[string]string{"a.txt": "hello"})
	dest := filepath.Join(t.TempDir(), "nested", "dest")

	m := NewUnarchiveModule()
	_, _, err := m.Exec(nil, nil, map[string]any{"src": src, "dest": dest}, nil, false)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dest, "a.txt"))
	assert.NoError(t, statErr)
}

func TestUnarchiveModule_CheckModeDoesNotExtract(t *testing.T) {
	src := filepath.Join(t.TempDir(), "in.tar.gz")
	writeTestTarGz(t, src, map[string]string{"a.txt": "hello"})
	dest := t.TempDir()

	m := NewUnarchiveModule()
	result, _, err := m.Exec(nil, nil, map[string]any{"src": src, "dest": dest}, nil, true)
	require.NoError(t, err)
	assert.True(t, result.Changed)

	_, statErr := os.Stat(filepath.Join(dest, "a.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestUnarchiveModule_RejectsZipSlip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "evil.tar.gz")
	writeTestTarGz(t, src, map[string]string{"../escape.txt": "bad"})
	dest := t.TempDir()

	m := NewUnarchiveModule()
	_, _, err := m.Exec(nil, nil, map[string]any{"src": src, "dest": dest}, nil, false)
	assert.Error(t, err)
}

func TestUnarchiveModule_MissingSrcIsError(t *testing.T) {
	m := NewUnarchiveModule()
	_, _, err := m.Exec(nil, nil, map[string]any{"dest": t.TempDir()}, nil, false)
	assert.Error(t, err)
}
