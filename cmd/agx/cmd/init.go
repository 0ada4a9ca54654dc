package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Luiz-Frias/semantic-code-agx/internal/config"
	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
)

// manifest is the small identity record kept at ".context/manifest.json"
// alongside the generated config file.
type manifest struct {
	CodebaseID string `json:"codebaseId"`
	CreatedAt  string `json:"createdAt"`
	Schema     int    `json:"schemaVersion"`
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Scaffold a codebase's .context state directory",
		Long: `Creates the ".context" directory at the codebase root: a default
config.toml, an identity manifest, and the jobs, sync, and vector state
directories (the jobs database itself is created on first use). Safe to
run again; pass --force to overwrite an existing config.toml.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runInit(path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config.toml")
	return cmd
}

func runInit(path string, force bool) error {
	absRoot, err := filepath.Abs(path)
	if err != nil {
		return errs.Invalid(errs.CodeInvalidPath, "cannot resolve path: "+err.Error())
	}
	if env := scaffold(absRoot, force); env != nil {
		printEnvelope(stdout, env)
		return env
	}

	result := map[string]any{"root": absRoot, "stateDir": filepath.Join(absRoot, stateDirName)}
	if stdout.Format() == "text" {
		stdout.Successf("initialized %s", filepath.Join(absRoot, stateDirName))
	}
	return stdout.Emit(result)
}

// scaffold creates "<absRoot>/.context" with a default config.toml,
// manifest.json, and an empty jobs subdirectory. Existing files are
// left untouched unless force is set.
func scaffold(absRoot string, force bool) *errs.Envelope {
	stateDir := filepath.Join(absRoot, stateDirName)
	if err := os.MkdirAll(filepath.Join(stateDir, "jobs"), 0o755); err != nil {
		return errs.Wrap(errs.CodeInvalidPath, "cannot create state directory", err, false)
	}
	if err := os.MkdirAll(filepath.Join(stateDir, "sync"), 0o755); err != nil {
		return errs.Wrap(errs.CodeInvalidPath, "cannot create sync directory", err, false)
	}
	if err := os.MkdirAll(filepath.Join(stateDir, "vector", "collections"), 0o755); err != nil {
		return errs.Wrap(errs.CodeInvalidPath, "cannot create vector directory", err, false)
	}

	configPath := filepath.Join(stateDir, "config.toml")
	if force || !fileExists(configPath) {
		f, err := os.Create(configPath)
		if err != nil {
			return errs.Wrap(errs.CodeInvalidPath, "cannot create config.toml", err, false)
		}
		defer f.Close()
		if err := toml.NewEncoder(f).Encode(config.Default()); err != nil {
			return errs.Wrap(errs.CodeInvalidValue, "cannot write config.toml", err, false)
		}
	}

	manifestPath := filepath.Join(stateDir, "manifest.json")
	if force || !fileExists(manifestPath) {
		m := manifest{
			CodebaseID: uuid.NewString(),
			CreatedAt:  time.Now().UTC().Format(time.RFC3339),
			Schema:     config.Default().Version,
		}
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return errs.Wrap(errs.CodeInternal, "cannot marshal manifest", err, false)
		}
		if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
			return errs.Wrap(errs.CodeInvalidPath, "cannot write manifest.json", err, false)
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
