package cmd

import (
	"bytes"

	"github.com/Luiz-Frias/semantic-code-agx/internal/output"
)

// captureStdout swaps the package-level stdout writer for one backed by
// buf, for the duration of fn, then restores the original. Every
// command writes through the shared "stdout" var rather than its own
// cobra SetOut buffer, since output format/agent-mode state lives there.
func captureStdout(format output.Format, fn func(buf *bytes.Buffer)) {
	buf := &bytes.Buffer{}
	original := stdout
	stdout = output.New(buf).WithFormat(format)
	defer func() { stdout = original }()
	fn(buf)
}
