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

	"github.com/rash-sh/rash-go/internal/config"
	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/rerr"
	"github.com/rash-sh/rash-go/internal/vars"
)

// UnarchiveParams mirrors
// original_source/rash_core/src/modules/unarchive.rs's Params,
// narrowed to local (non-remote) sources and the formats detectable
// without a third-party decompressor: tar, tar.gz, and zip.
type UnarchiveParams struct {
	Src  string `json:"src"`
	Dest string `json:"dest"`
}

// UnarchiveModule is the "unarchive" dispatch target: it unpacks Src
// into Dest, format detected from the file's magic bytes rather than
// its extension (the Rust original supports both; this port keeps
// only content-sniffing since it is format-independent of naming
// convention).
type UnarchiveModule struct{}

func NewUnarchiveModule() *UnarchiveModule { return &UnarchiveModule{} }

func (m *UnarchiveModule) Name() string { return "unarchive" }

func (m *UnarchiveModule) ForceStringOnParams() bool { return false }

func (m *UnarchiveModule) Exec(_ context.Context, _ *config.Config, params any, _ *vars.Context, checkMode bool) (module.Result, *module.Delta, error) {
	var p UnarchiveParams
	if err := decodeParams(params, &p); err != nil {
		return module.Result{}, nil, err
	}
	if p.Src == "" {
		return module.Result{}, nil, rerr.InvalidDataf("unarchive: src is required")
	}
	if p.Dest == "" {
		return module.Result{}, nil, rerr.InvalidDataf("unarchive: dest is required")
	}

	if _, err := os.Stat(p.Dest); err != nil {
		if !os.IsNotExist(err) {
			return module.Result{}, nil, rerr.IOErrorf(p.Dest, err)
		}
		if checkMode {
			return module.Result{Changed: true, Output: stringOutput(p.Dest)}, nil, nil
		}
		if err := os.MkdirAll(p.Dest, 0o755); err != nil {
			return module.Result{}, nil, rerr.IOErrorf(p.Dest, err)
		}
	}

	if checkMode {
		return module.Result{Changed: true, Output: stringOutput(p.Dest)}, nil, nil
	}

	magic, err := readMagic(p.Src)
	if err != nil {
		return module.Result{}, nil, rerr.IOErrorf(p.Src, err)
	}

	switch {
	case isGzipMagic(magic):
		if err := extractTarGz(p.Src, p.Dest); err != nil {
			return module.Result{}, nil, err
		}
	case isZipMagic(magic):
		if err := extractZip(p.Src, p.Dest); err != nil {
			return module.Result{}, nil, err
		}
	default:
		if err := extractTar(p.Src, p.Dest); err != nil {
			return module.Result{}, nil, err
		}
	}

	return module.Result{Changed: true, Output: stringOutput(p.Dest)}, nil, nil
}

func readMagic(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, 6)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

func isGzipMagic(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b
}

func isZipMagic(b []byte) bool {
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 0x03 && b[3] == 0x04
}

func extractTarGz(src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return rerr.IOErrorf(src, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return rerr.IOErrorf(src, err)
	}
	defer gz.Close()

	return extractTarReader(tar.NewReader(gz), dest)
}

func extractTar(src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return rerr.IOErrorf(src, err)
	}
	defer f.Close()

	return extractTarReader(tar.NewReader(f), dest)
}

func extractTarReader(tr *tar.Reader, dest string) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return rerr.IOErrorf(dest, err)
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)); err != nil {
				return rerr.IOErrorf(target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return rerr.IOErrorf(target, err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode))
			if err != nil {
				return rerr.IOErrorf(target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return rerr.IOErrorf(target, err)
			}
			out.Close()
		}
	}
}

func extractZip(src, dest string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return rerr.IOErrorf(src, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, f.Mode()); err != nil {
				return rerr.IOErrorf(target, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return rerr.IOErrorf(target, err)
		}
		rc, err := f.Open()
		if err != nil {
			return rerr.IOErrorf(target, err)
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode())
		if err != nil {
			rc.Close()
			return rerr.IOErrorf(target, err)
		}
		_, copyErr := io.Copy(out, rc)
		out.Close()
		rc.Close()
		if copyErr != nil {
			return rerr.IOErrorf(target, copyErr)
		}
	}
	return nil
}

// safeJoin resolves name against dest, rejecting any entry that would
// escape dest via "..": a zip-slip guard every tar/zip extractor needs.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, name)
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(filepath.Separator)) && target != filepath.Clean(dest) {
		return "", rerr.InvalidDataf("unarchive: illegal path %q escapes destination", name)
	}
	return target, nil
}
