// Package pathpolicy validates externally supplied relative paths before
// they reach the filesystem adapter, the splitter, or the vector store.
package pathpolicy

import (
	"strings"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
)

// StateDirName is the always-ignored, always-rejected state directory.
const StateDirName = ".context"

// Normalize applies the separator/collapse/leading-dot-slash rules a
// candidate path must pass through before validation and storage.
func Normalize(candidate string) string {
	s := strings.ReplaceAll(candidate, "\\", "/")
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}
	s = strings.TrimPrefix(s, "./")
	return s
}

// Validate normalizes candidate and rejects absolute paths, any ".."
// segment, empty paths, and paths under the state directory. On
// success it returns the normalized relative path.
func Validate(candidate string) (string, *errs.Envelope) {
	normalized := Normalize(candidate)

	if normalized == "" {
		return "", errs.Invalid(errs.CodeInvalidPath, "path is empty")
	}
	if strings.HasPrefix(normalized, "/") {
		return "", errs.Invalid(errs.CodeInvalidPath, "path must not be absolute")
	}
	if normalized == StateDirName || strings.HasPrefix(normalized, StateDirName+"/") {
		return "", errs.Invalid(errs.CodeInvalidPath, "path must not be under "+StateDirName)
	}
	for _, seg := range strings.Split(normalized, "/") {
		if seg == ".." {
			return "", errs.Invalid(errs.CodeInvalidPath, "path must not contain a \"..\" segment")
		}
	}
	return normalized, nil
}

// Accept reports whether candidate would pass Validate — convenience for
// call sites that only need the boolean (scan filtering, ignore checks).
func Accept(candidate string) bool {
	_, err := Validate(candidate)
	return err == nil
}
