package modules

import (
	"context"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/vars"
)

// DebugParams holds an already-rendered message or variable reference.
// Both fields arrive through the executor's normal param-rendering
// pass, so any {{ }} expression in msg/var is already substituted by
// the time Exec sees it — debug's whole job is to surface that text in
// the log and in the registered record, not to evaluate anything
// itself.
type DebugParams struct {
	Msg string `json:"msg,omitempty"`
	Var string `json:"var,omitempty"`
}

// DebugModule is the "debug" dispatch target: a no-op that always
// reports Changed: false and exists purely to put a value on the log.
type DebugModule struct{}

func NewDebugModule() *DebugModule { return &DebugModule{} }

func (m *DebugModule) Name() string { return "debug" }

func (m *DebugModule) ForceStringOnParams() bool { return false }

func (m *DebugModule) Exec(_ context.Context, _ *config.Config, params any, _ *vars.Context, _ bool) (module.Result, *module.Delta, error) {
	var p DebugParams
	if err := decodeParams(params, &p); err != nil {
		return module.Result{}, nil, err
	}

	switch {
	case p.Msg != "":
		return module.Result{Changed: false, Output: stringOutput(p.Msg)}, nil, nil
	case p.Var != "":
		return module.Result{Changed: false, Output: stringOutput(p.Var)}, nil, nil
	default:
		return module.Result{}, nil, rerr.InvalidDataf("debug: one of msg or var is required")
	}
}
