package modules

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/vars"
)

// CommandParams is shared by the "command" and "shell" modules. Both
// run a subprocess through os/exec and capture its stdout and
// stderr; "shell" always goes through
// /bin/sh -c, "command" execs argv directly with no shell
// interpolation.
type CommandParams struct {
	Cmd         string            `json:"cmd"`
	Chdir       string            `json:"chdir,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	TransferPid bool              `json:"transfer_pid,omitempty"`
}

// CommandModule is the "command"/"shell" dispatch target. UseShell
// selects argv-direct execution (false, "command") versus /bin/sh -c
// (true, "shell").
type CommandModule struct {
	ModuleName string
	UseShell   bool
}

func NewCommandModule() *CommandModule { return &CommandModule{ModuleName: "command", UseShell: false} }
func NewShellModule() *CommandModule   { return &CommandModule{ModuleName: "shell", UseShell: true} }

func (m *CommandModule) Name() string { return m.ModuleName }

func (m *CommandModule) ForceStringOnParams() bool { return false }

// JSONSchema implements module.SchemaModule for `rash doc modules`.
func (m *CommandModule) JSONSchema() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cmd":          map[string]any{"type": "string"},
			"chdir":        map[string]any{"type": "string"},
			"env":          map[string]any{"type": "object"},
			"transfer_pid": map[string]any{"type": "boolean"},
		},
		"required": []string{"cmd"},
	}
}

func (m *CommandModule) Exec(ctx context.Context, _ *config.Config, params any, _ *vars.Context, checkMode bool) (module.Result, *module.Delta, error) {
	return m.exec(ctx, params, checkMode)
}

func (m *CommandModule) exec(ctx context.Context, params any, checkMode bool) (module.Result, *module.Delta, error) {
	var p CommandParams
	if err := decodeParams(params, &p); err != nil {
		return module.Result{}, nil, err
	}
	if p.Cmd == "" {
		return module.Result{}, nil, rerr.InvalidDataf("%s: cmd is required", m.ModuleName)
	}

	if checkMode {
		return module.Result{Changed: true, Output: stringOutput("(check mode) " + p.Cmd)}, nil, nil
	}

	var cmd *exec.Cmd
	if m.UseShell {
		cmd = exec.CommandContext(ctx, "/bin/sh", "-c", p.Cmd)
	} else {
		fields := strings.Fields(p.Cmd)
		if len(fields) == 0 {
			return module.Result{}, nil, rerr.InvalidDataf("command: cmd is empty")
		}
		cmd = exec.CommandContext(ctx, fields[0], fields[1:]...)
	}
	if p.Chdir != "" {
		cmd.Dir = p.Chdir
	}
	if len(p.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range p.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return module.Result{}, nil, rerr.Wrapf(rerr.SubprocessFail, runErr, "spawning %q", p.Cmd)
		}
	}
	if exitCode != 0 {
		return module.Result{}, nil, rerr.SubprocessFailf(stderr.String(), exitCode)
	}

	out := strings.TrimSuffix(stdout.String(), "\n")
	return module.Result{
		Changed: true,
		Output:  &out,
		Extra: map[string]any{
			"stdout": out,
			"stderr": strings.TrimSuffix(stderr.String(), "\n"),
			"rc":     exitCode,
		},
	}, nil, nil
}
