package modules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rash-sh/rash-go/internal/rerr"
)

func TestCommandModule_RunsArgvDirectly(t *testing.T) {
	m := NewCommandModule()
	result, _, err := m.Exec(context.Background(), nil, map[string]any{"cmd": "echo hello"}, nil, false)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	require.NotNil(t, result.Output)
	assert.Equal(t, "hello", *result.Output)
}

func TestShellModule_RunsThroughShell(t *testing.T) {
	m := NewShellModule()
	result, _, err := m.Exec(context.Background(), nil, map[string]any{"cmd": "echo $((1+1))"}, nil, false)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	require.NotNil(t, result.Output)
	assert.Equal(t, "2", *result.Output)
}

func TestCommandModule_NonZeroExitIsSubprocessFail(t *testing.T) {
	m := NewShellModule()
	_, _, err := m.Exec(context.Background(), nil, map[string]any{"cmd": "exit 7"}, nil, false)
	require.Error(t, err)
	assert.True(t, rerr.HasKind(err, rerr.SubprocessFail))
}

func TestCommandModule_CheckModeDoesNotRun(t *testing.T) {
	m := NewCommandModule()
	result, _, err := m.Exec(context.Background(), nil, map[string]any{"cmd": "echo should-not-run"}, nil, true)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	require.NotNil(t, result.Output)
	assert.Contains(t, *result.Output, "check mode")
}

func TestCommandModule_MissingCmdIsError(t *testing.T) {
	m := NewCommandModule()
	_, _, err := m.Exec(context.Background(), nil, map[string]any{}, nil, false)
	assert.Error(t, err)
}

func TestCommandModule_ExtraHasStdoutStderrRc(t *testing.T) {
	m := NewShellModule()
	result, _, err := m.Exec(context.Background(), nil, map[string]any{"cmd": "echo out; echo err 1>&2"}, nil, false)
	require.NoError(t, err)

	extra, ok := result.Extra.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "out", extra["stdout"])
	assert.Equal(t, "err", extra["stderr"])
	assert.Equal(t, 0, extra["rc"])
}

func TestCommandModule_JSONSchemaRequiresCmd(t *testing.T) {
	schema, ok := NewCommandModule().JSONSchema().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"cmd"}, schema["required"])
}
