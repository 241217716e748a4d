package modules

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/vars"
)

// ServiceParams mirrors original_source/rash_core/src/modules/
// service.rs's Params, narrowed to the systemd backend: rash targets
// modern Linux hosts, and every pack example that shells out to an
// init system does so against systemd.
type ServiceParams struct {
	Name    string `json:"name"`
	State   string `json:"state,omitempty"`   // started, stopped, restarted, reloaded
	Enabled *bool  `json:"enabled,omitempty"`
}

// ServiceModule is the "service" dispatch target: a thin os/exec
// wrapper over systemctl, changed only when a command actually runs
// (there is no cheap way to check check_mode changed-state without
// first querying is-active/is-enabled, which this module does before
// acting).
type ServiceModule struct{}

func NewServiceModule() *ServiceModule { return &ServiceModule{} }

func (m *ServiceModule) Name() string { return "service" }

func (m *ServiceModule) ForceStringOnParams() bool { return false }

func (m *ServiceModule) Exec(ctx context.Context, _ *config.Config, params any, _ *vars.Context, checkMode bool) (module.Result, *module.Delta, error) {
	var p ServiceParams
	if err := decodeParams(params, &p); err != nil {
		return module.Result{}, nil, err
	}
	if p.Name == "" {
		return module.Result{}, nil, rerr.InvalidDataf("service: name is required")
	}

	changed := false

	if p.State != "" {
		action, wantActive, err := serviceAction(p.State)
		if err != nil {
			return module.Result{}, nil, err
		}
		isActive := systemctlQuery(ctx, "is-active", p.Name)
		needsRun := action == "restart" || action == "reload" || isActive != wantActive
		if needsRun {
			changed = true
			if !checkMode {
				if err := systemctlRun(ctx, action, p.Name); err != nil {
					return module.Result{}, nil, err
				}
			}
		}
	}

	if p.Enabled != nil {
		isEnabled := systemctlQuery(ctx, "is-enabled", p.Name)
		if isEnabled != *p.Enabled {
			changed = true
			if !checkMode {
				action := "disable"
				if *p.Enabled {
					action = "enable"
				}
				if err := systemctlRun(ctx, action, p.Name); err != nil {
					return module.Result{}, nil, err
				}
			}
		}
	}

	return module.Result{Changed: changed, Output: stringOutput(p.Name)}, nil, nil
}

func serviceAction(state string) (action string, wantActive bool, err error) {
	switch state {
	case "started":
		return "start", true, nil
	case "stopped":
		return "stop", false, nil
	case "restarted":
		return "restart", true, nil
	case "reloaded":
		return "reload", true, nil
	default:
		return "", false, rerr.InvalidDataf("service: unknown state %q", state)
	}
}

func systemctlQuery(ctx context.Context, query, name string) bool {
	cmd := exec.CommandContext(ctx, "systemctl", query, name)
	var out bytes.Buffer
	cmd.Stdout = &out
	_ = cmd.Run()
	return out.String() == "active\n" || out.String() == "enabled\n"
}

func systemctlRun(ctx context.Context, action, name string) error {
	cmd := exec.CommandContext(ctx, "systemctl", action, name)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return rerr.SubprocessFailf(stderr.String(), exitErr.ExitCode())
		}
		return rerr.Wrapf(rerr.SubprocessFail, err, "running systemctl %s %s", action, name)
	}
	return nil
}
