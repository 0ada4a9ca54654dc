package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
)

func newStatusCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the indexed state of a codebase: snapshot summary and vector count",
		RunE: func(c *cobra.Command, args []string) error {
			return runStatus(c.Context(), path)
		},
	}
	cmd.Flags().StringVar(&path, "path", ".", "Codebase root")
	return cmd
}

func runStatus(ctx context.Context, path string) error {
	w, env := openWorkspace(path)
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}

	rc := rctx.New(ctx)

	initialized := stateDirExists(w.absRoot)
	result := map[string]any{
		"root":        w.absRoot,
		"initialized": initialized,
	}
	if !initialized {
		if stdout.Format() == "text" {
			stdout.Status("ℹ️", "not initialized; run \"agx init\"")
		}
		return stdout.Emit(result)
	}

	snap, env := w.syncStore.LoadSnapshot(rc, w.absRoot)
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}
	if snap == nil {
		result["indexed"] = false
	} else {
		result["indexed"] = true
		result["fileCount"] = len(snap.FileHashes)
		result["rootHash"] = snap.RootHash
	}

	cfg := w.pipelineConfig()
	if env := w.store.CreateCollection(rc, cfg.Collection, cfg.Dimension, vectorParams()); env != nil {
		printEnvelope(stdout, env)
		return env
	}
	count, env := w.store.Count(rc, w.collection())
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}
	result["vectorCount"] = count

	if stdout.Format() == "text" {
		if snap == nil {
			stdout.Status("ℹ️", "no snapshot yet; run \"agx index\"")
		} else {
			stdout.Statusf("📊", "%d files indexed, %d vectors stored", len(snap.FileHashes), count)
		}
	}
	return stdout.Emit(result)
}
