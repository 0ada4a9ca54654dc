package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luiz-Frias/semantic-code-agx/internal/output"
)

func TestRunConfigShow_PrintsDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	captureStdout(output.FormatJSON, func(buf *bytes.Buffer) {
		require.NoError(t, runInit(tmpDir, false))
	})

	captureStdout(output.FormatJSON, func(buf *bytes.Buffer) {
		require.NoError(t, runConfigShow(tmpDir))

		var out map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		assert.EqualValues(t, 1, out["version"])
	})
}

func TestRunConfigValidate_ValidByDefault(t *testing.T) {
	tmpDir := t.TempDir()

	captureStdout(output.FormatJSON, func(buf *bytes.Buffer) {
		require.NoError(t, runInit(tmpDir, false))
	})

	captureStdout(output.FormatJSON, func(buf *bytes.Buffer) {
		require.NoError(t, runConfigValidate(tmpDir))

		var out map[string]bool
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		assert.True(t, out["valid"])
	})
}
