package privilege

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/vars"
)

func TestResolveUser_NamedUser(t *testing.T) {
	uid, gid, err := ResolveUser("root")
	require.NoError(t, err)
	assert.Equal(t, 0, uid)
	assert.Equal(t, 0, gid)
}

func TestResolveUser_NumericFallback(t *testing.T) {
	uid, _, err := ResolveUser("0")
	require.NoError(t, err)
	assert.Equal(t, 0, uid)
}

func TestResolveUser_Unknown(t *testing.T) {
	_, _, err := ResolveUser("no-such-user-abc123")
	require.Error(t, err)
	assert.True(t, rerr.HasKind(err, rerr.NotFound))
}

type stubModule struct {
	name    string
	changed bool
	output  string
	extra   any
	delta   *module.Delta
	err     error
}

func (s *stubModule) Name() string { return s.name }

func (s *stubModule) Exec(_ context.Context, _ *config.Config, params any, v *vars.Context, checkMode bool) (module.Result, *module.Delta, error) {
	if s.err != nil {
		return module.Result{}, nil, s.err
	}
	out := s.output
	return module.Result{Changed: s.changed, Output: &out, Extra: s.extra}, s.delta, nil
}

func (s *stubModule) ForceStringOnParams() bool { return false }

func TestRunChild_SuccessRoundTrip(t *testing.T) {
	registry := module.NewRegistry()
	registry.Register(&stubModule{name: "command", changed: true, output: "ok", extra: map[string]any{"rc": 0}})

	req := ChildRequest{
		Module:     "command",
		Params:     map[string]any{"cmd": "echo hi"},
		Vars:       map[string]any{"x": "1"},
		BecomeUser: "root",
	}
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	var out bytes.Buffer
	err = RunChild(context.Background(), payload, &out, registry)
	require.NoError(t, err)

	var resp ChildResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Changed)
	require.NotNil(t, resp.Output)
	assert.Equal(t, "ok", *resp.Output)
	assert.Empty(t, resp.ErrorKind)
}

func TestRunChild_UnknownModuleReportsErrorInResponse(t *testing.T) {
	registry := module.NewRegistry()

	req := ChildRequest{Module: "bogus", BecomeUser: "root"}
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	var out bytes.Buffer
	err = RunChild(context.Background(), payload, &out, registry)
	require.NoError(t, err)

	var resp ChildResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, string(rerr.NotFound), resp.ErrorKind)
	assert.NotEmpty(t, resp.ErrorMsg)
}

func TestRunChild_UnknownBecomeUserReportsErrorInResponse(t *testing.T) {
	registry := module.NewRegistry()
	registry.Register(&stubModule{name: "command"})

	req := ChildRequest{Module: "command", BecomeUser: "no-such-user-abc123"}
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	var out bytes.Buffer
	err = RunChild(context.Background(), payload, &out, registry)
	require.NoError(t, err)

	var resp ChildResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, string(rerr.NotFound), resp.ErrorKind)
}

func TestRunChild_ModuleErrorReportsErrorInResponse(t *testing.T) {
	registry := module.NewRegistry()
	registry.Register(&stubModule{name: "command", err: rerr.SubprocessFailf("boom", 7)})

	req := ChildRequest{Module: "command", BecomeUser: "root"}
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	var out bytes.Buffer
	err = RunChild(context.Background(), payload, &out, registry)
	require.NoError(t, err)

	var resp ChildResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, string(rerr.SubprocessFail), resp.ErrorKind)
	assert.NotEmpty(t, resp.ErrorMsg)
}
