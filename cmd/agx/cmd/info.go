package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Luiz-Frias/semantic-code-agx/pkg/version"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print build and version information",
		RunE: func(c *cobra.Command, args []string) error {
			info := version.GetInfo()
			if stdout.Format() == "text" {
				stdout.Status("", version.String())
				return nil
			}
			return stdout.Emit(info)
		},
	}
}
