package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/jobs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
)

// newInternalRunJobCmd is the hidden re-exec target for --background:
// the parent process creates the job record, launches a detached copy
// of itself running this command, and exits immediately, so the job
// survives the CLI invocation that started it.
func newInternalRunJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "__run-job <kind> <jobId> <path>",
		Hidden: true,
		Args:   cobra.ExactArgs(3),
		RunE: func(c *cobra.Command, args []string) error {
			return runJobWorker(c.Context(), args[0], args[1], args[2])
		},
	}
	return cmd
}

func runJobWorker(ctx context.Context, kind, jobID, path string) error {
	w, env := openWorkspace(path)
	if env != nil {
		return env
	}

	store, jerr := jobs.Open(w.stateDir + "/jobs")
	if jerr != nil {
		return jerr
	}
	defer store.Close()

	if err := store.MarkRunning(jobID, os.Getpid()); err != nil {
		return err
	}

	parent := rctx.New(ctx)
	rc, stopWatch := jobs.Watch(parent, store, jobID, jobs.DefaultPollInterval)
	defer stopWatch()

	var (
		summary string
		runErr  *errs.Envelope
	)
	switch jobs.Kind(kind) {
	case jobs.KindIndex:
		result, e := executeIndex(rc, w)
		runErr = e
		if e == nil {
			summary = fmt.Sprintf("indexed %d files, %d chunks upserted", result.Files, result.UpsertedCount)
		}
	case jobs.KindReindex:
		result, e := executeReindex(rc, w)
		runErr = e
		if e == nil {
			summary = fmt.Sprintf("added %d, modified %d, removed %d, %d chunks upserted",
				result.Added, result.Modified, result.Removed, result.UpsertedCount)
		}
	default:
		return errs.Invalid(errs.CodeInvalidValue, "unknown job kind: "+kind)
	}

	if runErr != nil {
		if errs.IsCancelled(runErr) {
			return envelopeToError(store.MarkCancelled(jobID))
		}
		return envelopeToError(store.MarkFailed(jobID, runErr.Error()))
	}
	return envelopeToError(store.MarkSucceeded(jobID, summary))
}

// envelopeToError converts a possibly-nil *errs.Envelope to the error
// interface without the typed-nil trap: returning a nil *errs.Envelope
// directly as an error would produce a non-nil interface value.
func envelopeToError(env *errs.Envelope) error {
	if env == nil {
		return nil
	}
	return env
}

// launchBackgroundJob creates a job record for kind at path and starts
// a detached worker process to run it, returning the job immediately.
func launchBackgroundJob(w *workspace, kind jobs.Kind) (string, *errs.Envelope) {
	store, jerr := jobs.Open(w.stateDir + "/jobs")
	if jerr != nil {
		return "", jerr
	}
	defer store.Close()

	job, jerr := store.Create(kind)
	if jerr != nil {
		return "", jerr
	}

	execPath, err := os.Executable()
	if err != nil {
		return "", errs.Wrap(errs.CodeInternal, "cannot resolve own executable path", err, false)
	}

	child := exec.Command(execPath, "__run-job", string(kind), job.ID, w.absRoot)
	child.Stdout = nil
	child.Stderr = nil
	child.Stdin = nil
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := child.Start(); err != nil {
		return "", errs.Wrap(errs.CodeInternal, "cannot start background worker", err, false)
	}
	// Release rather than Wait: the worker outlives this process, and
	// its own invocation updates the job record when it finishes.
	_ = child.Process.Release()

	return job.ID, nil
}
