package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luiz-Frias/semantic-code-agx/internal/output"
	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
)

func TestExecuteReindex_DetectsAddedAndModifiedFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeSampleRepo(t, tmpDir)

	captureStdout(output.FormatJSON, func(buf *bytes.Buffer) {
		require.NoError(t, runInit(tmpDir, false))
	})

	w, env := openWorkspace(tmpDir)
	require.Nil(t, env)

	rc := rctx.New(t.Context())
	first, env := executeReindex(rc, w)
	require.Nil(t, env)
	assert.Equal(t, 2, first.Added)
	assert.Equal(t, 0, first.Modified)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "util.go"),
		[]byte("package main\n\nfunc helper() int {\n\treturn 43\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "extra.go"),
		[]byte("package main\n\nfunc extra() {}\n"), 0o644))

	w2, env := openWorkspace(tmpDir)
	require.Nil(t, env)
	second, env := executeReindex(rc, w2)
	require.Nil(t, env)
	assert.Equal(t, 1, second.Added)
	assert.Equal(t, 1, second.Modified)
	assert.Equal(t, 0, second.Removed)
}

func TestRunReindex_JSONOutput(t *testing.T) {
	tmpDir := t.TempDir()
	writeSampleRepo(t, tmpDir)

	captureStdout(output.FormatJSON, func(buf *bytes.Buffer) {
		require.NoError(t, runIndex(t.Context(), tmpDir, true, false))
	})

	captureStdout(output.FormatJSON, func(buf *bytes.Buffer) {
		cmd := newReindexCmd()
		cmd.SetArgs([]string{tmpDir})
		require.NoError(t, cmd.Execute())

		var out map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		assert.Contains(t, out, "unchanged")
	})
}
