package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/jobs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
	"github.com/Luiz-Frias/semantic-code-agx/internal/reindex"
	"github.com/Luiz-Frias/semantic-code-agx/internal/watchsvc"
)

func newReindexCmd() *cobra.Command {
	var (
		background bool
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "reindex [path]",
		Short: "Diff the codebase against its last snapshot and reprocess only what changed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

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

			if watch {
				return runReindexWatch(ctx, w)
			}

			if background {
				jobID, env := launchBackgroundJob(w, jobs.KindReindex)
				if env != nil {
					printEnvelope(stdout, env)
					return env
				}
				if stdout.Format() == "text" {
					stdout.Successf("started background job %s", jobID)
				}
				return stdout.Emit(map[string]string{"jobId": jobID})
			}

			rc := rctx.New(ctx)
			result, env := executeReindex(rc, w)
			if env != nil {
				printEnvelope(stdout, env)
				return env
			}
			if stdout.Format() == "text" {
				stdout.Successf("added %d, modified %d, removed %d, %d chunks upserted",
					result.Added, result.Modified, result.Removed, result.UpsertedCount)
			}
			return stdout.Emit(map[string]any{
				"added":         result.Added,
				"modified":      result.Modified,
				"removed":       result.Removed,
				"unchanged":     result.Unchanged,
				"chunksDeleted": result.ChunksDeleted,
				"chunksUpserted": result.UpsertedCount,
			})
		},
	}

	cmd.Flags().BoolVar(&background, "background", false, "Run reindexing as a background job; prints a job id")
	cmd.Flags().BoolVar(&watch, "watch", false, "Run once, then keep watching the codebase and reindex on change until interrupted")
	return cmd
}

// runReindexWatch runs one reindex pass, then starts watchsvc to rerun
// it (debounced) on every filesystem change until ctx is cancelled.
// A failure of the first pass is returned before the watcher starts;
// after that, a failed pass is logged and does not stop the watch.
func runReindexWatch(ctx context.Context, w *workspace) error {
	rc := rctx.New(ctx)
	result, env := executeReindex(rc, w)
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}
	if stdout.Format() == "text" {
		stdout.Successf("added %d, modified %d, removed %d, %d chunks upserted; watching for changes",
			result.Added, result.Modified, result.Removed, result.UpsertedCount)
	}

	watcher, err := watchsvc.New(w.absRoot, w.ignoreM, 0, func() {
		rc := rctx.New(ctx)
		if _, env := executeReindex(rc, w); env != nil {
			slog.Warn("reindex --watch: reindex pass failed", slog.String("error", env.Error()))
		}
	})
	if err != nil {
		env := errs.Wrap(errs.CodeInternal, "cannot start watcher", err, false)
		printEnvelope(stdout, env)
		return env
	}
	if err := watcher.Start(); err != nil {
		env := errs.Wrap(errs.CodeInternal, "cannot start watcher", err, false)
		printEnvelope(stdout, env)
		return env
	}
	defer watcher.Close()

	<-ctx.Done()
	return nil
}

// executeReindex wires the workspace's adapters into internal/reindex.Run.
func executeReindex(rc *rctx.RequestContext, w *workspace) (*reindex.Result, *errs.Envelope) {
	cfg := w.pipelineConfig()
	if env := w.store.CreateCollection(rc, cfg.Collection, cfg.Dimension, vectorParams()); env != nil {
		return nil, env
	}
	ad := reindex.Adapters{
		FS:        w.fs,
		Ignore:    w.ignoreM,
		Splitter:  w.splitter,
		Embedder:  w.embedder,
		Store:     w.store,
		SyncStore: w.syncStore,
	}
	return reindex.Run(rc, cfg, ad, w.absRoot)
}
