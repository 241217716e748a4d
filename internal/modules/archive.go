package modules

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/vars"
)

// ArchiveParams mirrors original_source/rash_core/src/modules/archive.rs's
// Params, narrowed to the formats the standard library can produce
// without a third-party compressor: tar, tar.gz, and zip (bz2/xz are
// not supported — see DESIGN.md).
type ArchiveParams struct {
	Path    []string `json:"path"`
	Dest    string   `json:"dest"`
	Format  string   `json:"format,omitempty"` // gz (default), tar, zip
	Exclude []string `json:"exclude,omitempty"`
}

// ArchiveModule is the "archive" dispatch target: it creates Dest from
// one or more source paths, always Changed: true when it runs (the
// Rust original treats archive creation as partial check-mode support
// for the same reason: there's no cheap way to predict the resulting
// archive's byte-for-byte identity without building it).
type ArchiveModule struct{}

func NewArchiveModule() *ArchiveModule { return &ArchiveModule{} }

func (m *ArchiveModule) Name() string { return "archive" }

func (m *ArchiveModule) ForceStringOnParams() bool { return false }

func (m *ArchiveModule) Exec(_ context.Context, _ *config.Config, params any, _ *vars.Context, checkMode bool) (module.Result, *module.Delta, error) {
	var p ArchiveParams
	if err := decodeParams(params, &p); err != nil {
		return module.Result{}, nil, err
	}
	if len(p.Path) == 0 {
		return module.Result{}, nil, rerr.InvalidDataf("archive: path is required")
	}
	if p.Dest == "" {
		return module.Result{}, nil, rerr.InvalidDataf("archive: dest is required")
	}
	format := p.Format
	if format == "" {
		format = "gz"
	}

	sources, err := expandArchiveSources(p.Path, p.Exclude)
	if err != nil {
		return module.Result{}, nil, err
	}

	if checkMode {
		return module.Result{Changed: true, Output: stringOutput(p.Dest)}, nil, nil
	}

	switch format {
	case "gz", "tar":
		if err := writeTarArchive(p.Dest, sources, format == "gz"); err != nil {
			return module.Result{}, nil, err
		}
	case "zip":
		if err := writeZipArchive(p.Dest, sources); err != nil {
			return module.Result{}, nil, err
		}
	case "bz2", "xz":
		return module.Result{}, nil, rerr.InvalidDataf("archive: format %q is not supported", format)
	default:
		return module.Result{}, nil, rerr.InvalidDataf("archive: unknown format %q", format)
	}

	return module.Result{Changed: true, Output: stringOutput(p.Dest)}, nil, nil
}

type archiveSource struct {
	absPath string
	relPath string
}

func expandArchiveSources(paths, excludes []string) ([]archiveSource, error) {
	var sources []archiveSource
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, rerr.IOErrorf(root, err)
		}
		base := filepath.Dir(root)
		if info.IsDir() {
			base = root
		}
		walkErr := filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() {
				return nil
			}
			if excludeMatches(excludes, filepath.Base(path)) {
				return nil
			}
			rel, err := filepath.Rel(base, path)
			if err != nil {
				return err
			}
			sources = append(sources, archiveSource{absPath: path, relPath: filepath.ToSlash(rel)})
			return nil
		})
		if walkErr != nil {
			return nil, rerr.IOErrorf(root, walkErr)
		}
	}
	return sources, nil
}

func excludeMatches(excludes []string, basename string) bool {
	for _, pat := range excludes {
		if ok, err := doublestar.Match(pat, basename); err == nil && ok {
			return true
		}
	}
	return false
}

func writeTarArchive(dest string, sources []archiveSource, gzipped bool) error {
	f, err := os.Create(dest)
	if err != nil {
		return rerr.IOErrorf(dest, err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if gzipped {
		gz = gzip.NewWriter(f)
		w = gz
	}
	tw := tar.NewWriter(w)

	for _, src := range sources {
		if err := addFileToTar(tw, src); err != nil {
			return rerr.IOErrorf(src.absPath, err)
		}
	}
	if err := tw.Close(); err != nil {
		return rerr.IOErrorf(dest, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return rerr.IOErrorf(dest, err)
		}
	}
	return nil
}

func addFileToTar(tw *tar.Writer, src archiveSource) error {
	info, err := os.Stat(src.absPath)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = src.relPath

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	f, err := os.Open(src.absPath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}

func writeZipArchive(dest string, sources []archiveSource) error {
	f, err := os.Create(dest)
	if err != nil {
		return rerr.IOErrorf(dest, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, src := range sources {
		if err := addFileToZip(zw, src); err != nil {
			return rerr.IOErrorf(src.absPath, err)
		}
	}
	if err := zw.Close(); err != nil {
		return rerr.IOErrorf(dest, err)
	}
	return nil
}

func addFileToZip(zw *zip.Writer, src archiveSource) error {
	f, err := os.Open(src.absPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.Create(strings.TrimPrefix(src.relPath, "/"))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
