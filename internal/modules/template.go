package modules

import (
	"context"
	"os"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/template"
	"github.com/rash-sh/rash-go/internal/vars"
)

// TemplateParams names a source template file and a destination path.
// Unlike every other module's params, Src's *contents* are rendered
// here rather than by the executor's generic param-rendering pass —
// the executor only renders the scalar leaves of a task's own params
// (i.e. the Src/Dest strings themselves), never an arbitrary file a
// param happens to point at.
type TemplateParams struct {
	Src  string `json:"src"`
	Dest string `json:"dest"`
	Mode string `json:"mode,omitempty"`
}

// TemplateModule is the "template" dispatch target: it reads Src,
// renders its content against the caller's variable context using the
// same Renderer the executor uses for task params, and writes the
// result to Dest — changed only when the rendered output or mode
// actually differ, mirroring copy.go's diff-then-write discipline.
type TemplateModule struct {
	Renderer template.Renderer
}

func NewTemplateModule() *TemplateModule {
	return &TemplateModule{Renderer: template.New()}
}

func (m *TemplateModule) Name() string { return "template" }

func (m *TemplateModule) ForceStringOnParams() bool { return false }

func (m *TemplateModule) Exec(_ context.Context, _ *config.Config, params any, v *vars.Context, checkMode bool) (module.Result, *module.Delta, error) {
	var p TemplateParams
	if err := decodeParams(params, &p); err != nil {
		return module.Result{}, nil, err
	}
	if p.Src == "" {
		return module.Result{}, nil, rerr.InvalidDataf("template: src is required")
	}
	if p.Dest == "" {
		return module.Result{}, nil, rerr.InvalidDataf("template: dest is required")
	}

	raw, err := os.ReadFile(p.Src)
	if err != nil {
		return module.Result{}, nil, rerr.IOErrorf(p.Src, err)
	}

	rendered, err := m.Renderer.Render(string(raw), v)
	if err != nil {
		return module.Result{}, nil, rerr.Wrapf(rerr.InvalidData, err, "template: rendering %s", p.Src)
	}

	mode := os.FileMode(0o644)
	if p.Mode != "" {
		parsed, err := parseOctalMode(p.Mode)
		if err != nil {
			return module.Result{}, nil, rerr.Wrapf(rerr.InvalidData, err, "template: invalid mode %q", p.Mode)
		}
		mode = parsed
	}

	existing, readErr := os.ReadFile(p.Dest)
	contentChanged := readErr != nil || string(existing) != rendered

	var modeChanged bool
	if info, statErr := os.Stat(p.Dest); statErr == nil {
		modeChanged = info.Mode().Perm() != mode.Perm()
	} else {
		modeChanged = true
	}

	if checkMode {
		return module.Result{Changed: contentChanged || modeChanged, Output: stringOutput(p.Dest)}, nil, nil
	}

	if contentChanged {
		if err := atomic.WriteFile(p.Dest, strings.NewReader(rendered)); err != nil {
			return module.Result{}, nil, rerr.IOErrorf(p.Dest, err)
		}
	}
	if contentChanged || modeChanged {
		if err := os.Chmod(p.Dest, mode); err != nil {
			return module.Result{}, nil, rerr.IOErrorf(p.Dest, err)
		}
	}

	return module.Result{Changed: contentChanged || modeChanged, Output: stringOutput(p.Dest)}, nil, nil
}
