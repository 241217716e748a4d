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

// IptablesParams mirrors original_source/rash_core/src/modules/
// iptables.rs's Params, the subset of iptables(8) match/target
// criteria rash exposes as task parameters.
type IptablesParams struct {
	Table            string `json:"table,omitempty"`
	Chain            string `json:"chain"`
	Protocol         string `json:"protocol,omitempty"`
	Source           string `json:"source,omitempty"`
	Destination      string `json:"destination,omitempty"`
	SourcePort       string `json:"source_port,omitempty"`
	DestinationPort  string `json:"destination_port,omitempty"`
	InInterface      string `json:"in_interface,omitempty"`
	OutInterface     string `json:"out_interface,omitempty"`
	Ctstate          string `json:"ctstate,omitempty"`
	Jump             string `json:"jump,omitempty"`
	ToDestination    string `json:"to_destination,omitempty"`
	Policy           string `json:"policy,omitempty"`
	Flush            bool   `json:"flush,omitempty"`
	State            string `json:"state,omitempty"` // present (default) or absent
}

// IptablesModule is the "iptables" dispatch target: an os/exec wrapper
// over the iptables(8) CLI. It checks rule existence with `-C` before
// acting (so check_mode and Changed are accurate) except for policy
// and flush operations, which always run (iptables has no query form
// for "is the policy already DROP").
type IptablesModule struct{}

func NewIptablesModule() *IptablesModule { return &IptablesModule{} }

func (m *IptablesModule) Name() string { return "iptables" }

func (m *IptablesModule) ForceStringOnParams() bool { return false }

func (m *IptablesModule) Exec(ctx context.Context, _ *config.Config, params any, _ *vars.Context, checkMode bool) (module.Result, *module.Delta, error) {
	var p IptablesParams
	if err := decodeParams(params, &p); err != nil {
		return module.Result{}, nil, err
	}
	if p.Chain == "" {
		return module.Result{}, nil, rerr.InvalidDataf("iptables: chain is required")
	}

	table := p.Table
	if table == "" {
		table = "filter"
	}

	switch {
	case p.Flush:
		if err := runIptablesIf(ctx, checkMode, "-t", table, "-F", p.Chain); err != nil {
			return module.Result{}, nil, err
		}
		return module.Result{Changed: true, Output: stringOutput(p.Chain)}, nil, nil

	case p.Policy != "":
		if err := runIptablesIf(ctx, checkMode, "-t", table, "-P", p.Chain, p.Policy); err != nil {
			return module.Result{}, nil, err
		}
		return module.Result{Changed: true, Output: stringOutput(p.Chain)}, nil, nil

	default:
		ruleArgs := iptablesRuleArgs(table, p)
		exists := iptablesQuery(ctx, append([]string{"-t", table, "-C", p.Chain}, ruleArgs...)...)
		wantPresent := p.State != "absent"
		changed := exists != wantPresent
		if changed && !checkMode {
			flag := "-D"
			if wantPresent {
				flag = "-A"
			}
			args := append([]string{"-t", table, flag, p.Chain}, ruleArgs...)
			if err := iptablesRun(ctx, args...); err != nil {
				return module.Result{}, nil, err
			}
		}
		return module.Result{Changed: changed, Output: stringOutput(p.Chain)}, nil, nil
	}
}

func runIptablesIf(ctx context.Context, checkMode bool, args ...string) error {
	if checkMode {
		return nil
	}
	return iptablesRun(ctx, args...)
}

func iptablesRuleArgs(_ string, p IptablesParams) []string {
	var args []string
	add := func(flag, value string) {
		if value != "" {
			args = append(args, flag, value)
		}
	}
	add("-p", p.Protocol)
	add("-s", p.Source)
	add("-d", p.Destination)
	add("--sport", p.SourcePort)
	add("--dport", p.DestinationPort)
	add("-i", p.InInterface)
	add("-o", p.OutInterface)
	if p.Ctstate != "" {
		args = append(args, "-m", "conntrack", "--ctstate", p.Ctstate)
	}
	add("-j", p.Jump)
	add("--to-destination", p.ToDestination)
	return args
}

func iptablesQuery(ctx context.Context, args ...string) bool {
	cmd := exec.CommandContext(ctx, "iptables", args...)
	return cmd.Run() == nil
}

func iptablesRun(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "iptables", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return rerr.SubprocessFailf(stderr.String(), exitErr.ExitCode())
		}
		return rerr.Wrapf(rerr.SubprocessFail, err, "running iptables %v", args)
	}
	return nil
}
