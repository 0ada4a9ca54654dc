package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/jobs"
)

func newJobsCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and control background index/reindex jobs",
	}
	cmd.PersistentFlags().StringVar(&path, "path", ".", "Codebase root")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List known background jobs, most recent first",
		RunE: func(c *cobra.Command, args []string) error {
			return runJobsList(path)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status <jobId>",
		Short: "Show one background job's current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runJobsStatus(path, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "cancel <jobId>",
		Short: "Request cancellation of a running background job",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runJobsCancel(path, args[0])
		},
	})
	return cmd
}

func openJobsStore(path string) (*jobs.Store, *errs.Envelope) {
	w, env := openWorkspace(path)
	if env != nil {
		return nil, env
	}
	if env := requireInitialized(w.absRoot); env != nil {
		return nil, env
	}
	return jobs.Open(w.stateDir + "/jobs")
}

func runJobsList(path string) error {
	store, env := openJobsStore(path)
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}
	defer store.Close()

	list, env := store.List()
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}

	if stdout.Format() == "text" {
		if len(list) == 0 {
			stdout.Status("ℹ️", "no jobs recorded")
		}
		for _, j := range list {
			stdout.Statusf("🗂️", "%s  %-8s %-10s", j.ID, j.Kind, j.Status)
		}
	}
	return stdout.Emit(map[string]any{"jobs": list})
}

func runJobsStatus(path, id string) error {
	store, env := openJobsStore(path)
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}
	defer store.Close()

	job, env := store.Get(id)
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}

	if stdout.Format() == "text" {
		stdout.Statusf("🗂️", "%s  kind=%s status=%s", job.ID, job.Kind, job.Status)
	}
	return stdout.Emit(job)
}

func runJobsCancel(path, id string) error {
	store, env := openJobsStore(path)
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}
	defer store.Close()

	if env := store.RequestCancel(id); env != nil {
		printEnvelope(stdout, env)
		return env
	}

	if stdout.Format() == "text" {
		stdout.Successf("cancellation requested for job %s", id)
	}
	return stdout.Emit(map[string]string{"jobId": id, "cancelRequested": "true"})
}
