package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultRegistry_RegistersEveryBuiltinModule(t *testing.T) {
	r := NewDefaultRegistry()
	names := r.Names()

	for _, name := range []string{
		"command", "shell", "copy", "file", "stat", "find",
		"archive", "unarchive", "template", "debug", "assert",
		"service", "firewalld", "iptables",
		"docker_container", "docker_image",
	} {
		assert.True(t, names[name], "expected %q to be registered", name)
	}

	m, err := r.Lookup("command")
	require.NoError(t, err)
	assert.Equal(t, "command", m.Name())
}
