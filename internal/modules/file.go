package modules

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/vars"
)

// FileParams mirrors the subset of Ansible-style file state management
// rash needs: ensuring a path exists as a file/directory, or is absent.
type FileParams struct {
	Path  string `json:"path"`
	State string `json:"state,omitempty"` // "file" (touch), "directory", "absent"
	Mode  string `json:"mode,omitempty"`
}

// FileModule is the "file" dispatch target: state=directory creates a
// directory tree, state=absent removes path recursively, state=file
// (the default) touches an empty file into existence.
type FileModule struct{}

func NewFileModule() *FileModule { return &FileModule{} }

func (m *FileModule) Name() string { return "file" }

func (m *FileModule) ForceStringOnParams() bool { return false }

func (m *FileModule) Exec(_ context.Context, _ *config.Config, params any, _ *vars.Context, checkMode bool) (module.Result, *module.Delta, error) {
	var p FileParams
	if err := decodeParams(params, &p); err != nil {
		return module.Result{}, nil, err
	}
	if p.Path == "" {
		return module.Result{}, nil, rerr.InvalidDataf("file: path is required")
	}
	if p.State == "" {
		p.State = "file"
	}

	_, statErr := os.Lstat(p.Path)
	exists := statErr == nil

	switch p.State {
	case "absent":
		if !exists {
			return module.Result{Changed: false, Output: stringOutput(p.Path)}, nil, nil
		}
		if checkMode {
			return module.Result{Changed: true, Output: stringOutput(p.Path)}, nil, nil
		}
		if err := os.RemoveAll(p.Path); err != nil {
			return module.Result{}, nil, rerr.IOErrorf(p.Path, err)
		}
		return module.Result{Changed: true, Output: stringOutput(p.Path)}, nil, nil

	case "directory":
		if exists {
			return module.Result{Changed: false, Output: stringOutput(p.Path)}, nil, nil
		}
		if checkMode {
			return module.Result{Changed: true, Output: stringOutput(p.Path)}, nil, nil
		}
		mode := os.FileMode(0o755)
		if p.Mode != "" {
			parsed, err := parseOctalMode(p.Mode)
			if err != nil {
				return module.Result{}, nil, rerr.Wrapf(rerr.InvalidData, err, "file: invalid mode %q", p.Mode)
			}
			mode = parsed
		}
		if err := os.MkdirAll(p.Path, mode); err != nil {
			return module.Result{}, nil, rerr.IOErrorf(p.Path, err)
		}
		return module.Result{Changed: true, Output: stringOutput(p.Path)}, nil, nil

	case "file":
		if exists {
			return module.Result{Changed: false, Output: stringOutput(p.Path)}, nil, nil
		}
		if checkMode {
			return module.Result{Changed: true, Output: stringOutput(p.Path)}, nil, nil
		}
		f, err := os.OpenFile(p.Path, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return module.Result{}, nil, rerr.IOErrorf(p.Path, err)
		}
		f.Close()
		return module.Result{Changed: true, Output: stringOutput(p.Path)}, nil, nil

	default:
		return module.Result{}, nil, rerr.InvalidDataf("file: unknown state %q", p.State)
	}
}

// StatParams mirrors original_source/rash_core/src/modules/stat.rs's
// Params, trimmed to the fields rash's executor can reasonably surface
// through vars without a full Ansible facts module.
type StatParams struct {
	Path        string `json:"path"`
	GetChecksum bool   `json:"get_checksum,omitempty"`
}

// StatModule is the "stat" dispatch target: a read-only facts probe,
// always a no-op for Changed since it never touches the filesystem.
type StatModule struct{}

func NewStatModule() *StatModule { return &StatModule{} }

func (m *StatModule) Name() string { return "stat" }

func (m *StatModule) ForceStringOnParams() bool { return false }

func (m *StatModule) Exec(_ context.Context, _ *config.Config, params any, _ *vars.Context, _ bool) (module.Result, *module.Delta, error) {
	var p StatParams
	if err := decodeParams(params, &p); err != nil {
		return module.Result{}, nil, err
	}
	if p.Path == "" {
		return module.Result{}, nil, rerr.InvalidDataf("stat: path is required")
	}

	info, err := os.Lstat(p.Path)
	if err != nil {
		return module.Result{Changed: false, Extra: map[string]any{"exists": false}}, nil, nil
	}

	stat := map[string]any{
		"exists": true,
		"isdir":  info.IsDir(),
		"size":   info.Size(),
		"mode":   info.Mode().Perm().String(),
		"mtime":  info.ModTime().Unix(),
	}
	if !info.IsDir() && p.GetChecksum {
		sum, err := sha256Checksum(p.Path)
		if err == nil {
			stat["checksum"] = sum
		}
	}

	return module.Result{Changed: false, Extra: map[string]any{"stat": stat}}, nil, nil
}

func sha256Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
