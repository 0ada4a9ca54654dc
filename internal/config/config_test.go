package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPassesValidation(t *testing.T) {
	require.Nil(t, Default().Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, env := Load(dir)
	require.Nil(t, env)
	assert.Equal(t, Default().Core.TimeoutMs, cfg.Core.TimeoutMs)
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `version = 1

[core]
timeoutMs = 5000
maxConcurrency = 16

[embedding]
provider = "local"
dimension = 128
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))

	cfg, env := Load(dir)
	require.Nil(t, env)
	assert.Equal(t, 5000, cfg.Core.TimeoutMs)
	assert.Equal(t, 16, cfg.Core.MaxConcurrency)
	assert.Equal(t, 128, cfg.Embedding.Dimension)
}

func TestLoadTOMLRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	content := "version = 1\nbogusField = true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))

	_, env := Load(dir)
	require.NotNil(t, env)
	assert.Equal(t, errs.CodeInvalidValue, env.Code)
}

func TestLoadJSONOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `{"version": 1, "core": {"timeoutMs": 9000}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0o644))

	cfg, env := Load(dir)
	require.Nil(t, env)
	assert.Equal(t, 9000, cfg.Core.TimeoutMs)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := "version: 1\ncore:\n  timeoutMs: 7500\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, env := Load(dir)
	require.Nil(t, env)
	assert.Equal(t, 7500, cfg.Core.TimeoutMs)
}

func TestLoadYAMLRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	content := "version: 1\nbogusField: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	_, env := Load(dir)
	require.NotNil(t, env)
	assert.Equal(t, "config:invalid_value", env.Code)
}

func TestEnvVarOverridesFileValue(t *testing.T) {
	dir := t.TempDir()
	content := "version = 1\n[core]\ntimeoutMs = 5000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))

	t.Setenv("SCA_CORE_TIMEOUTMS", "12345")
	cfg, env := Load(dir)
	require.Nil(t, env)
	assert.Equal(t, 12345, cfg.Core.TimeoutMs)
}

func TestEnvVarCSVListIsNormalizedAndSorted(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCA_SYNC_ALLOWEDEXTENSIONS", " ts, go,go, py ")
	cfg, env := Load(dir)
	require.Nil(t, env)
	assert.Equal(t, []string{"go", "py", "ts"}, cfg.Sync.AllowedExtensions)
}

func TestValidateRejectsOutOfRangeBounds(t *testing.T) {
	cfg := Default()
	cfg.Core.MaxConcurrency = 0
	env := cfg.Validate()
	require.NotNil(t, env)
	assert.Equal(t, errs.CodeInvalidValue, env.Code)
}

func TestValidateRejectsInvalidRoutingMode(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Routing.Mode = "nonsense"
	env := cfg.Validate()
	require.NotNil(t, env)
}

func TestExpandEnvVarsInFileValues(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCA_TEST_PROVIDER", "remote-thing")
	content := "version = 1\n[embedding]\nprovider = \"${SCA_TEST_PROVIDER}\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))

	cfg, env := Load(dir)
	require.Nil(t, env)
	assert.Equal(t, "remote-thing", cfg.Embedding.Provider)
}
