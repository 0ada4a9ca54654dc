package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/indexpipeline"
	"github.com/Luiz-Frias/semantic-code-agx/internal/jobs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
)

func newIndexCmd() *cobra.Command {
	var (
		initFlag   bool
		background bool
	)

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Scan, chunk, embed, and upsert a codebase into the local vector index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, path, initFlag, background)
		},
	}

	cmd.Flags().BoolVar(&initFlag, "init", false, "Create the .context scaffold first if missing")
	cmd.Flags().BoolVar(&background, "background", false, "Run indexing as a background job; prints a job id")
	return cmd
}

func runIndex(ctx context.Context, path string, initFlag, background bool) error {
	w, env := openWorkspace(path)
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}
	if !stateDirExists(w.absRoot) {
		if !initFlag {
			env := errs.Invalid(errs.CodeInvalidValue,
				fmt.Sprintf("no %s directory at %s; pass --init or run \"agx init\" first", stateDirName, w.absRoot))
			printEnvelope(stdout, env)
			return env
		}
		if env := scaffold(w.absRoot, false); env != nil {
			printEnvelope(stdout, env)
			return env
		}
	}

	acquireLock(w.stateDir)
	defer releaseLock()

	if background {
		return runIndexInBackground(w)
	}

	rc := rctx.New(ctx)
	result, env := executeIndex(rc, w)
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}
	if stdout.Format() == "text" {
		stdout.Successf("indexed %d files, %d chunks upserted", result.Files, result.UpsertedCount)
	}
	return stdout.Emit(map[string]any{
		"filesIndexed":  result.Files,
		"chunksUpserted": result.UpsertedCount,
	})
}

// executeIndex runs the full scan→chunk→embed→upsert→complete typestate
// pipeline once.
func executeIndex(rc *rctx.RequestContext, w *workspace) (*indexpipeline.Completed, *errs.Envelope) {
	cfg := w.pipelineConfig()

	if env := w.store.CreateCollection(rc, cfg.Collection, cfg.Dimension, vectorParams()); env != nil {
		return nil, env
	}

	scanned, env := indexpipeline.NewPrepared(rc, cfg, w.fs, w.ignoreM).Scan()
	if env != nil {
		return nil, env
	}
	chunked, env := scanned.Chunk(w.splitter)
	if env != nil {
		return nil, env
	}
	embedded, env := chunked.Embed(w.embedder)
	if env != nil {
		return nil, env
	}
	upserted, env := embedded.Upsert(w.store)
	if env != nil {
		return nil, env
	}
	return upserted.Complete(w.syncStore, w.absRoot)
}

// runIndexInBackground records a pending job and starts a detached
// worker process to run it (see worker.go), then returns immediately:
// the job outlives this CLI invocation, so "jobs status"/"jobs cancel"
// from a later invocation can observe and affect it.
func runIndexInBackground(w *workspace) error {
	jobID, env := launchBackgroundJob(w, jobs.KindIndex)
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}
	if stdout.Format() == "text" {
		stdout.Successf("started background job %s", jobID)
	}
	return stdout.Emit(map[string]string{"jobId": jobID})
}
