// Package script ties the docopt resolver, the YAML task body, and the
// task builder together: Load reads a script file, resolves its CLI
// against the header's docopt usage, and builds the ordered Task list
// the executor runs.
package script

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/docopt"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/task"
	"github.com/rash-sh/rash-go/internal/vars"
)

// Script holds a script's resolved CLI vars and its built task list,
// ready for internal/executor.Run.
type Script struct {
	Vars  *vars.Context
	Tasks []*task.Task
}

var commentLineRe = regexp.MustCompile(`^\s*#`)

// Load resolves argv against the script's docopt header and builds its
// task list against the modules registered in registry. A GracefulExit
// error (help requested) is returned unchanged for the caller to print
// and exit 0.
func Load(source string, argv []string, registry *module.Registry, defaults config.DefaultsConfig) (*Script, error) {
	v, err := docopt.Parse(source, argv)
	if err != nil {
		return nil, err
	}

	body := yamlBody(source)

	var raw []map[string]any
	if strings.TrimSpace(body) != "" {
		if err := yaml.Unmarshal([]byte(body), &raw); err != nil {
			return nil, rerr.Wrapf(rerr.InvalidData, err, "parsing script YAML body")
		}
	}

	knownModules := registry.Names()
	tasks := make([]*task.Task, 0, len(raw))
	for i, entry := range raw {
		rt := task.ParseRawTask(entry)
		vt, err := rt.ValidateAttrs(knownModules)
		if err != nil {
			return nil, rerr.Wrapf(rerr.InvalidData, err, "task %d", i)
		}

		var forceString bool
		if mod, lookErr := registry.Lookup(vt.ModuleName()); lookErr == nil {
			forceString = mod.ForceStringOnParams()
		}

		t, err := vt.Build(defaults, forceString)
		if err != nil {
			return nil, rerr.Wrapf(rerr.InvalidData, err, "task %d", i)
		}
		tasks = append(tasks, t)
	}

	return &Script{Vars: v, Tasks: tasks}, nil
}

// yamlBody returns everything after the shebang line and the
// contiguous run of `#` comment lines that follows it: the YAML task
// sequence. Blank lines between the comment block and the YAML body
// are preserved, since YAML treats them as insignificant.
func yamlBody(source string) string {
	lines := strings.Split(source, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}

	i := 0
	for i < len(lines) && commentLineRe.MatchString(lines[i]) {
		i++
	}

	return strings.Join(lines[i:], "\n")
}
