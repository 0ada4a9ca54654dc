package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
)

// DefaultPollInterval is how often Watch checks for a cancellation
// request between a separate "jobs cancel" invocation and the worker
// goroutine actually running the pipeline.
const DefaultPollInterval = 500 * time.Millisecond

// Watch derives a child RequestContext from parent and returns it along
// with a stop function the caller must invoke once the job finishes. In
// the background, it polls store for id's cancel_requested flag every
// interval and cancels the derived context the moment it sees one,
// letting every adapter and pipeline stage downstream observe
// cancellation through rctx.Cancelled the same way it observes a
// deadline.
func Watch(parent *rctx.RequestContext, store *Store, id string, interval time.Duration) (*rctx.RequestContext, context.CancelFunc) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(parent.Context())
	child := rctx.WithCorrelationID(ctx, parent.CorrelationID())

	done := make(chan struct{})
	stop := func() {
		close(done)
		cancel()
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				requested, env := store.IsCancelRequested(id)
				if env != nil {
					slog.Warn("jobs: cancellation poll failed",
						slog.String("jobId", id), slog.String("error", env.Error()))
					continue
				}
				if requested {
					cancel()
					return
				}
			}
		}
	}()

	return child, stop
}
