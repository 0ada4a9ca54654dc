// Package cmd provides the CLI commands for agx, a local-first
// semantic code search engine: init, index, search, reindex, clear,
// status, jobs list/status/cancel, config show/validate, and info.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/lockfile"
	"github.com/Luiz-Frias/semantic-code-agx/internal/logs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/output"
)

// Exit codes.
const (
	ExitSuccess    = 0
	ExitFailure    = 1
	ExitValidation = 2
	ExitCancelled  = 3
)

var (
	outputFormat string
	agentMode    bool
	logLevel     string
	logJSON      bool

	stdout = output.New(os.Stdout)
	lock   *lockfile.Lock
)

// Execute runs the agx CLI and returns a 0/1/2/3 process exit code. It
// never calls os.Exit itself so tests can invoke it without
// terminating the test binary.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		if env, ok := err.(*errs.Envelope); ok {
			return exitCodeFor(env)
		}
		return ExitFailure
	}
	return ExitSuccess
}

// NewRootCmd builds the root command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "agx",
		Short:         "Local-first semantic code search",
		Long:          "agx indexes a codebase into a local vector index and answers semantic search queries entirely offline.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&outputFormat, "output", "text", "Output format: text|json|ndjson")
	cmd.PersistentFlags().BoolVar(&agentMode, "agent", false, "Agent mode: force ndjson output, suppress progress")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().BoolVar(&logJSON, "log-json", true, "Emit structured JSON logs")

	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		format := output.Format(outputFormat)
		if agentMode {
			format = output.FormatNDJSON
		}
		stdout = stdout.WithFormat(format).WithAgent(agentMode).WithInteractive(isInteractive())

		logger, cleanup, err := logs.Setup(logs.Config{Level: logLevel, JSON: logJSON})
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		c.Root().PersistentPostRunE = chainCleanup(c.Root().PersistentPostRunE, cleanup)
		return nil
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newJobsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newInternalRunJobCmd())

	return cmd
}

func chainCleanup(existing func(*cobra.Command, []string) error, cleanup func()) func(*cobra.Command, []string) error {
	return func(c *cobra.Command, args []string) error {
		cleanup()
		if existing != nil {
			return existing(c, args)
		}
		return nil
	}
}

// exitCodeFor maps an error envelope to a process exit code.
func exitCodeFor(env *errs.Envelope) int {
	switch {
	case errs.IsCancelled(env):
		return ExitCancelled
	case env.Kind == errs.KindExpected:
		return ExitValidation
	default:
		return ExitFailure
	}
}

// printEnvelope renders an envelope consistently across output formats:
// the structured form on stdout in json/ndjson mode, one line on
// stderr in text mode.
func printEnvelope(w *output.Writer, env *errs.Envelope) {
	if w.Format() != output.FormatText {
		_ = w.Emit(map[string]any{
			"error": map[string]any{
				"code":    env.Code,
				"kind":    string(env.Kind),
				"class":   string(env.Class),
				"message": env.Error(),
			},
		})
		return
	}
	fmt.Fprintln(os.Stderr, "error:", env.Error())
}

// acquireLock best-effort-locks absRoot's state directory for the
// duration of a mutating command (index/reindex/clear), per
// internal/lockfile's fail-open contract.
func acquireLock(stateDir string) {
	lock = lockfile.Acquire(stateDir)
}

func releaseLock() {
	lock.Release()
}

// isInteractive reports whether stdout is an attached terminal, used to
// pick a sane default when a command wants to know whether a human is
// likely watching (distinct from --agent, which is always explicit).
func isInteractive() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}
