package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Luiz-Frias/semantic-code-agx/internal/config"
	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
)

func newConfigCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate a codebase's configuration",
	}
	cmd.PersistentFlags().StringVar(&path, "path", ".", "Codebase root")

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration, after layering and env overrides",
		RunE: func(c *cobra.Command, args []string) error {
			return runConfigShow(path)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration without printing it",
		RunE: func(c *cobra.Command, args []string) error {
			return runConfigValidate(path)
		},
	})
	return cmd
}

func loadConfigAt(path string) (*config.Config, string, *errs.Envelope) {
	w, env := openWorkspace(path)
	if env != nil {
		return nil, "", env
	}
	return w.cfg, w.stateDir, nil
}

func runConfigShow(path string) error {
	cfg, _, env := loadConfigAt(path)
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}
	return stdout.Emit(cfg)
}

func runConfigValidate(path string) error {
	cfg, _, env := loadConfigAt(path)
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}
	if env := cfg.Validate(); env != nil {
		printEnvelope(stdout, env)
		return env
	}
	if stdout.Format() == "text" {
		stdout.Success("configuration is valid")
	}
	return stdout.Emit(map[string]bool{"valid": true})
}
