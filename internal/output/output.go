// Package output provides consistent CLI output formatting for
// cmd/agx: human-readable status/progress lines in text mode, and a
// single machine-readable record per command in json/ndjson mode.
// Icon-prefixed Status/Success/Warning/Error helpers and a text
// progress bar back the human-readable default; a structured Emit
// path backs json/ndjson/agent mode.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Format selects how a command's final result is rendered.
type Format string

const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
)

// Writer provides formatted output for CLI. Status/progress helpers are
// no-ops outside FormatText or when Agent is set, since agent mode
// suppresses progress chatter and json/ndjson callers want only the
// final Emit record on stdout.
type Writer struct {
	out         io.Writer
	useColor    bool
	format      Format
	agent       bool
	interactive bool
}

// New creates a new output Writer defaulting to text format.
func New(out io.Writer) *Writer {
	return &Writer{
		out:      out,
		useColor: false, // Default to no color for simplicity
		format:   FormatText,
	}
}

// WithFormat sets the rendering format and returns the writer for chaining.
func (w *Writer) WithFormat(f Format) *Writer {
	w.format = f
	return w
}

// WithAgent marks the writer as running in agent mode, suppressing
// progress/status chatter regardless of format.
func (w *Writer) WithAgent(agent bool) *Writer {
	w.agent = agent
	return w
}

// WithInteractive records whether the underlying stream is an attached
// terminal. Non-interactive text output (piped to a file or CI log)
// skips the carriage-return progress redraw and prints only the final
// line, since "\r" updates are meaningless without a terminal.
func (w *Writer) WithInteractive(interactive bool) *Writer {
	w.interactive = interactive
	return w
}

// Format reports the writer's configured output format.
func (w *Writer) Format() Format { return w.format }

func (w *Writer) quiet() bool {
	return w.agent || w.format != FormatText
}

// Emit writes v as the command's single machine-readable result in
// json or ndjson mode; it is a no-op in text mode, where callers render
// their own human-readable summary instead.
func (w *Writer) Emit(v any) error {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatNDJSON:
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w.out, string(data))
		return err
	default:
		return nil
	}
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if w.quiet() {
		return
	}
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	w.Status(icon, msg)
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Code prints a code block with indentation.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	// Indent each line
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Progress prints a progress bar with message.
func (w *Writer) Progress(current, total int, msg string) {
	if w.quiet() || total <= 0 {
		return
	}

	pct := float64(current) / float64(total) * 100
	bar := renderProgressBar(current, total, 30)

	if !w.interactive {
		if current >= total {
			_, _ = fmt.Fprintf(w.out, "[%s] %.0f%% %s\n", bar, pct, msg)
		}
		return
	}

	// Use carriage return for in-place updates
	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", bar, pct, msg)

	// Add newline when complete
	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

// ProgressDone completes a progress line with newline.
func (w *Writer) ProgressDone() {
	if w.quiet() {
		return
	}
	_, _ = fmt.Fprintln(w.out)
}

// renderProgressBar creates a text progress bar.
func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}

	pct := float64(current) / float64(total)
	filled := int(pct * float64(width))

	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
