package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Luiz-Frias/semantic-code-agx/internal/merkle"
	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
)

func newClearCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop a codebase's vector collection and Merkle snapshot",
		RunE: func(c *cobra.Command, args []string) error {
			return runClear(c.Context(), path)
		},
	}
	cmd.Flags().StringVar(&path, "path", ".", "Codebase root")
	return cmd
}

func runClear(ctx context.Context, path string) error {
	w, env := openWorkspace(path)
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}
	if env := requireInitialized(w.absRoot); env != nil {
		printEnvelope(stdout, env)
		return env
	}

	acquireLock(w.stateDir)
	defer releaseLock()

	rc := rctx.New(ctx)

	cfg := w.pipelineConfig()
	if env := w.store.CreateCollection(rc, cfg.Collection, cfg.Dimension, vectorParams()); env != nil {
		printEnvelope(stdout, env)
		return env
	}
	if env := w.store.Clear(rc, w.collection()); env != nil {
		printEnvelope(stdout, env)
		return env
	}
	if env := w.syncStore.SaveSnapshot(rc, w.absRoot, merkle.Build(nil)); env != nil {
		printEnvelope(stdout, env)
		return env
	}

	if stdout.Format() == "text" {
		stdout.Successf("cleared index for %s", w.absRoot)
	}
	return stdout.Emit(map[string]any{"cleared": true, "root": w.absRoot})
}
