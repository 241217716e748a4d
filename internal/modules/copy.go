package modules

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/vars"
)

// CopyParams mirrors original_source/rash_core/src/modules/copy.rs's
// Params: content written verbatim to dest, with an optional mode.
type CopyParams struct {
	Content string `json:"content"`
	Dest    string `json:"dest"`
	Mode    string `json:"mode,omitempty"`
}

// CopyModule writes Content to Dest, changed only when the content or
// mode actually differs, and never leaves a half-written file: writes
// go through atomic.WriteFile's temp-file-then-rename, the Go
// equivalent of the Rust original's own write-then-set_len dance.
type CopyModule struct{}

func NewCopyModule() *CopyModule { return &CopyModule{} }

func (m *CopyModule) Name() string { return "copy" }

func (m *CopyModule) ForceStringOnParams() bool { return false }

// JSONSchema implements module.SchemaModule for `rash doc modules`.
func (m *CopyModule) JSONSchema() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{"type": "string"},
			"dest":    map[string]any{"type": "string"},
			"mode":    map[string]any{"type": "string"},
		},
		"required": []string{"content", "dest"},
	}
}

func (m *CopyModule) Exec(_ context.Context, _ *config.Config, params any, _ *vars.Context, checkMode bool) (module.Result, *module.Delta, error) {
	var p CopyParams
	if err := decodeParams(params, &p); err != nil {
		return module.Result{}, nil, err
	}
	if p.Dest == "" {
		return module.Result{}, nil, rerr.InvalidDataf("copy: dest is required")
	}

	mode := os.FileMode(0o644)
	if p.Mode != "" {
		parsed, err := parseOctalMode(p.Mode)
		if err != nil {
			return module.Result{}, nil, rerr.Wrapf(rerr.InvalidData, err, "copy: invalid mode %q", p.Mode)
		}
		mode = parsed
	}

	existing, readErr := os.ReadFile(p.Dest)
	contentChanged := readErr != nil || string(existing) != p.Content

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
		if err := atomic.WriteFile(p.Dest, strings.NewReader(p.Content)); err != nil {
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

// parseOctalMode parses a mode string ("0644", "644") as an octal
// permission bitmask, mirroring the Rust original's parse_octal.
func parseOctalMode(s string) (os.FileMode, error) {
	n, err := strconv.ParseUint(strings.TrimPrefix(s, "0"), 8, 32)
	if err != nil {
		return 0, err
	}
	return os.FileMode(n) & os.ModePerm, nil
}
