package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luiz-Frias/semantic-code-agx/internal/output"
)

func TestRunInit_CreatesStateDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	captureStdout(output.FormatJSON, func(buf *bytes.Buffer) {
		err := runInit(tmpDir, false)
		require.NoError(t, err)
	})

	stateDir := filepath.Join(tmpDir, stateDirName)
	assert.DirExists(t, stateDir)
	assert.FileExists(t, filepath.Join(stateDir, "config.toml"))
	assert.FileExists(t, filepath.Join(stateDir, "manifest.json"))
	assert.DirExists(t, filepath.Join(stateDir, "jobs"))
	assert.DirExists(t, filepath.Join(stateDir, "sync"))
	assert.DirExists(t, filepath.Join(stateDir, "vector", "collections"))
}

func TestRunInit_IsIdempotentWithoutForce(t *testing.T) {
	tmpDir := t.TempDir()

	captureStdout(output.FormatJSON, func(buf *bytes.Buffer) {
		require.NoError(t, runInit(tmpDir, false))
	})

	configPath := filepath.Join(tmpDir, stateDirName, "config.toml")
	before, err := os.ReadFile(configPath)
	require.NoError(t, err)

	captureStdout(output.FormatJSON, func(buf *bytes.Buffer) {
		require.NoError(t, runInit(tmpDir, false))
	})

	after, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
