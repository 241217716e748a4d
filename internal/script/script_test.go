package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/modules"
)

const fixtureScript = `#!/usr/bin/env rash
# Greet
#
# Usage: greet [--name=<name>]
#
# Options:
#   --name=<name>  Who to greet [default: world]

- name: say hello
  debug:
    msg: "hello {{ name }}"
`

func TestLoad_BuildsTasksFromYAMLBody(t *testing.T) {
	reg := modules.NewDefaultRegistry()
	s, err := Load(fixtureScript, nil, reg, config.DefaultsConfig{})
	require.NoError(t, err)
	require.Len(t, s.Tasks, 1)
	assert.Equal(t, "debug", s.Tasks[0].Module)
	assert.Equal(t, "say hello", s.Tasks[0].Name)

	name, ok := s.Vars.Get("--name")
	require.True(t, ok)
	assert.Equal(t, "world", name)
}

func TestLoad_UnmatchedArgvIsInvalidData(t *testing.T) {
	reg := modules.NewDefaultRegistry()
	_, err := Load(fixtureScript, []string{"--nope"}, reg, config.DefaultsConfig{})
	require.Error(t, err)
}

func TestLoad_UnknownModuleKeyIsInvalidData(t *testing.T) {
	reg := module.NewRegistry()
	_, err := Load(fixtureScript, nil, reg, config.DefaultsConfig{})
	assert.Error(t, err)
}

func TestYAMLBody_StripsShebangAndComments(t *testing.T) {
	body := yamlBody(fixtureScript)
	assert.Contains(t, body, "- name: say hello")
	assert.NotContains(t, body, "#!/usr/bin/env rash")
	assert.NotContains(t, body, "# Usage")
}

func TestLoad_EmptyBodyYieldsNoTasks(t *testing.T) {
	const noBody = "#!/usr/bin/env rash\n# Usage: noop\n"
	s, err := Load(noBody, nil, module.NewRegistry(), config.DefaultsConfig{})
	require.NoError(t, err)
	assert.Empty(t, s.Tasks)
}
