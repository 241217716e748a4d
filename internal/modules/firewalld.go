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

// FirewalldParams mirrors original_source/rash_core/src/modules/
// firewalld.rs's Params, one rule kind per invocation (service, port,
// interface, source, masquerade, or rich_rule) against a zone.
type FirewalldParams struct {
	Service     string `json:"service,omitempty"`
	Port        string `json:"port,omitempty"`
	Interface   string `json:"interface,omitempty"`
	Source      string `json:"source,omitempty"`
	Masquerade  bool   `json:"masquerade,omitempty"`
	RichRule    string `json:"rich_rule,omitempty"`
	Zone        string `json:"zone,omitempty"`
	State       string `json:"state"` // enabled, disabled, present, absent
	Permanent   bool   `json:"permanent,omitempty"`
	Immediate   bool   `json:"immediate,omitempty"`
}

// FirewalldModule is the "firewalld" dispatch target: an os/exec
// wrapper over firewall-cmd, querying --query-* before acting so
// check_mode can report an accurate Changed without mutating anything.
type FirewalldModule struct{}

func NewFirewalldModule() *FirewalldModule { return &FirewalldModule{} }

func (m *FirewalldModule) Name() string { return "firewalld" }

func (m *FirewalldModule) ForceStringOnParams() bool { return false }

func (m *FirewalldModule) Exec(ctx context.Context, _ *config.Config, params any, _ *vars.Context, checkMode bool) (module.Result, *module.Delta, error) {
	var p FirewalldParams
	if err := decodeParams(params, &p); err != nil {
		return module.Result{}, nil, err
	}

	ruleArgs, err := firewalldRuleArgs(p)
	if err != nil {
		return module.Result{}, nil, err
	}

	wantPresent := p.State == "enabled" || p.State == "present"
	if !wantPresent && p.State != "disabled" && p.State != "absent" {
		return module.Result{}, nil, rerr.InvalidDataf("firewalld: unknown state %q", p.State)
	}

	zone := p.Zone
	if zone == "" {
		zone = "public"
	}

	queryArgs := append([]string{"--zone", zone}, append([]string{"--query-" + ruleArgs.verb}, ruleArgs.args...)...)
	isPresent := firewallCmdQuery(ctx, queryArgs)

	changed := isPresent != wantPresent
	if changed && !checkMode {
		action := "--remove-" + ruleArgs.verb
		if wantPresent {
			action = "--add-" + ruleArgs.verb
		}
		args := append([]string{"--zone", zone}, append([]string{action}, ruleArgs.args...)...)
		if p.Permanent {
			args = append(args, "--permanent")
		}
		if err := firewallCmdRun(ctx, args); err != nil {
			return module.Result{}, nil, err
		}
		if p.Permanent && p.Immediate {
			if err := firewallCmdRun(ctx, []string{"--reload"}); err != nil {
				return module.Result{}, nil, err
			}
		}
	}

	return module.Result{Changed: changed, Output: stringOutput(zone)}, nil, nil
}

type firewalldRule struct {
	verb string
	args []string
}

func firewalldRuleArgs(p FirewalldParams) (firewalldRule, error) {
	switch {
	case p.Service != "":
		return firewalldRule{verb: "service", args: []string{p.Service}}, nil
	case p.Port != "":
		return firewalldRule{verb: "port", args: []string{p.Port}}, nil
	case p.Interface != "":
		return firewalldRule{verb: "interface", args: []string{p.Interface}}, nil
	case p.Source != "":
		return firewalldRule{verb: "source", args: []string{p.Source}}, nil
	case p.RichRule != "":
		return firewalldRule{verb: "rich-rule", args: []string{p.RichRule}}, nil
	case p.Masquerade:
		return firewalldRule{verb: "masquerade", args: nil}, nil
	default:
		return firewalldRule{}, rerr.InvalidDataf("firewalld: one of service, port, interface, source, masquerade, rich_rule is required")
	}
}

func firewallCmdQuery(ctx context.Context, args []string) bool {
	cmd := exec.CommandContext(ctx, "firewall-cmd", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	_ = cmd.Run()
	return out.String() == "yes\n"
}

func firewallCmdRun(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "firewall-cmd", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return rerr.SubprocessFailf(stderr.String(), exitErr.ExitCode())
		}
		return rerr.Wrapf(rerr.SubprocessFail, err, "running firewall-cmd %v", args)
	}
	return nil
}
