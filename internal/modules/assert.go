package modules

import (
	"context"
	"strings"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/vars"
)

// AssertParams holds one or more already-rendered condition strings.
// Like debug's msg/var, every entry in That has already passed through
// the executor's {{ }} substitution by the time Exec runs; assert's
// job is the same truthy test internal/template.Jinjaish.IsTruthy
// applies to a fully-rendered when/changed_when expression (non-empty,
// not literally "false").
type AssertParams struct {
	That       []string `json:"that"`
	FailMsg    string   `json:"fail_msg,omitempty"`
	SuccessMsg string   `json:"success_msg,omitempty"`
}

// AssertModule is the "assert" dispatch target: it fails the task
// (returning an error) on the first condition that is not truthy,
// otherwise reports Changed: false.
type AssertModule struct{}

func NewAssertModule() *AssertModule { return &AssertModule{} }

func (m *AssertModule) Name() string { return "assert" }

func (m *AssertModule) ForceStringOnParams() bool { return false }

func (m *AssertModule) Exec(_ context.Context, _ *config.Config, params any, _ *vars.Context, _ bool) (module.Result, *module.Delta, error) {
	var p AssertParams
	if err := decodeParams(params, &p); err != nil {
		return module.Result{}, nil, err
	}
	if len(p.That) == 0 {
		return module.Result{}, nil, rerr.InvalidDataf("assert: that is required")
	}

	for _, cond := range p.That {
		if !renderedTruthy(cond) {
			msg := p.FailMsg
			if msg == "" {
				msg = "assertion failed: " + cond
			}
			return module.Result{}, nil, rerr.InvalidDataf("%s", msg)
		}
	}

	out := p.SuccessMsg
	if out == "" {
		out = "all assertions passed"
	}
	return module.Result{Changed: false, Output: stringOutput(out)}, nil, nil
}

// renderedTruthy applies the same truthy rule
// internal/template.Jinjaish uses for when/changed_when to an
// already-rendered string: empty and the literal "false" are false,
// everything else is true.
func renderedTruthy(s string) bool {
	trimmed := strings.TrimSpace(s)
	return trimmed != "" && trimmed != "false"
}
