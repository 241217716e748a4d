package modules

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/vars"
)

// FindParams mirrors original_source/rash_core/src/modules/find.rs's
// Params. patterns/excludes are matched as glob patterns against a
// candidate's basename (doublestar, not the original's RegexSet) per
// the redesign decision recorded in DESIGN.md.
type FindParams struct {
	Paths    []string `json:"paths"`
	Excludes []string `json:"excludes,omitempty"`
	FileType string   `json:"file_type,omitempty"` // any, directory, file (default), link
	Follow   bool     `json:"follow,omitempty"`
	Hidden   bool     `json:"hidden,omitempty"`
	Patterns []string `json:"patterns,omitempty"`
	Recurse  bool     `json:"recurse,omitempty"`
}

// FindModule is the "find" dispatch target: a read-only filesystem
// search, always Changed: false.
type FindModule struct{}

func NewFindModule() *FindModule { return &FindModule{} }

func (m *FindModule) Name() string { return "find" }

func (m *FindModule) ForceStringOnParams() bool { return false }

func (m *FindModule) Exec(_ context.Context, _ *config.Config, params any, _ *vars.Context, _ bool) (module.Result, *module.Delta, error) {
	var p FindParams
	if err := decodeParams(params, &p); err != nil {
		return module.Result{}, nil, err
	}
	if len(p.Paths) == 0 {
		return module.Result{}, nil, rerr.InvalidDataf("find: paths must contain at least one valid path")
	}
	for _, path := range p.Paths {
		if !filepath.IsAbs(path) {
			return module.Result{}, nil, rerr.InvalidDataf("find: paths contains relative path %q", path)
		}
	}
	if p.FileType == "" {
		p.FileType = "file"
	}

	var matches []string
	for _, root := range p.Paths {
		found, err := m.walkRoot(root, p)
		if err != nil {
			return module.Result{}, nil, err
		}
		matches = append(matches, found...)
	}

	return module.Result{Changed: false, Extra: matches}, nil, nil
}

func (m *FindModule) walkRoot(root string, p FindParams) ([]string, error) {
	var matches []string
	maxDepth := 1
	if p.Recurse {
		maxDepth = -1
	}
	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		base := filepath.Base(path)
		if !p.Hidden && strings.HasPrefix(base, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if maxDepth >= 0 {
			depth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
			if depth > maxDepth {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if !matchesFileType(d, p.FileType, p.Follow) {
			return nil
		}
		if len(p.Excludes) > 0 && matchesAny(p.Excludes, base) {
			return nil
		}
		if len(p.Patterns) > 0 && !matchesAny(p.Patterns, base) {
			return nil
		}
		matches = append(matches, path)
		return nil
	}

	if err := filepath.WalkDir(root, walkFn); err != nil {
		return nil, rerr.IOErrorf(root, err)
	}
	return matches, nil
}

func matchesFileType(d fs.DirEntry, fileType string, follow bool) bool {
	switch fileType {
	case "any":
		return true
	case "directory":
		return d.IsDir()
	case "link":
		return d.Type()&fs.ModeSymlink != 0
	default: // "file"
		if follow && d.Type()&fs.ModeSymlink != 0 {
			return true
		}
		return d.Type().IsRegular()
	}
}

func matchesAny(patterns []string, basename string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, basename); err == nil && ok {
			return true
		}
	}
	return false
}
