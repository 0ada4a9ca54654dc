// Package fslocal implements adapters.Filesystem over the OS filesystem
// rooted at an absolute directory, rejecting any relative path that
// internal/pathpolicy refuses.
//
// New stores the root exactly as given and does not check that it
// exists or is absolute; the adapter contract exposes three read-only
// operations, not a channel-streaming scan.
package fslocal

import (
	"os"
	"path/filepath"

	"github.com/Luiz-Frias/semantic-code-agx/internal/adapters"
	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/pathpolicy"
	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
)

// Filesystem is an adapters.Filesystem rooted at an absolute directory.
type Filesystem struct {
	Root string
}

// New returns a Filesystem rooted at absRoot.
func New(absRoot string) *Filesystem {
	return &Filesystem{Root: absRoot}
}

func (f *Filesystem) resolve(relPath string) (string, *errs.Envelope) {
	normalized, env := pathpolicy.Validate(relPath)
	if env != nil {
		return "", env
	}
	return filepath.Join(f.Root, filepath.FromSlash(normalized)), nil
}

// ListDir lists relDir's immediate entries, sorted by name. relDir == ""
// lists the root itself.
func (f *Filesystem) ListDir(rc *rctx.RequestContext, relDir string) ([]adapters.DirEntry, *errs.Envelope) {
	abs := f.Root
	if relDir != "" {
		var env *errs.Envelope
		abs, env = f.resolve(relDir)
		if env != nil {
			return nil, env
		}
	}

	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInvalidPath, "list directory", err, false)
	}

	out := make([]adapters.DirEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			continue // entry vanished between readdir and stat; skip it
		}
		out = append(out, adapters.DirEntry{
			Name:  de.Name(),
			IsDir: de.IsDir(),
			Size:  info.Size(),
		})
	}
	return out, nil
}

// ReadFile reads relPath's content, rejecting files over maxSize bytes
// when maxSize > 0.
func (f *Filesystem) ReadFile(rc *rctx.RequestContext, relPath string, maxSize int64) ([]byte, *errs.Envelope) {
	abs, env := f.resolve(relPath)
	if env != nil {
		return nil, env
	}

	if maxSize > 0 {
		info, err := os.Stat(abs)
		if err != nil {
			return nil, errs.Wrap(errs.CodeInvalidPath, "stat file", err, false)
		}
		if info.Size() > maxSize {
			return nil, errs.Invalid(errs.CodeInvalidValue, "file exceeds configured maximum size")
		}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInvalidPath, "read file", err, false)
	}
	return data, nil
}

// Stat reports relPath's size and directory-ness.
func (f *Filesystem) Stat(rc *rctx.RequestContext, relPath string) (adapters.DirEntry, *errs.Envelope) {
	abs, env := f.resolve(relPath)
	if env != nil {
		return adapters.DirEntry{}, env
	}
	info, err := os.Stat(abs)
	if err != nil {
		return adapters.DirEntry{}, errs.Wrap(errs.CodeInvalidPath, "stat path", err, false)
	}
	return adapters.DirEntry{Name: filepath.Base(relPath), IsDir: info.IsDir(), Size: info.Size()}, nil
}
