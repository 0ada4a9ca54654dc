// Package rctx provides RequestContext: the cancellation token and
// correlation id carried through every adapter and pipeline boundary call.
package rctx

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RequestContext wraps a context.Context with a stable correlation id so
// every log line and error envelope for one logical request can be
// correlated end to end.
type RequestContext struct {
	ctx           context.Context
	correlationID string
}

// New wraps ctx with a freshly generated correlation id.
func New(ctx context.Context) *RequestContext {
	return &RequestContext{ctx: ctx, correlationID: uuid.NewString()}
}

// WithCorrelationID wraps ctx with an explicit, caller-supplied id — used
// when a correlation id arrives from an external boundary (CLI flag, job
// record) and must be threaded through rather than regenerated.
func WithCorrelationID(ctx context.Context, id string) *RequestContext {
	return &RequestContext{ctx: ctx, correlationID: id}
}

// Context returns the underlying context.Context for passing to stdlib
// and adapter APIs that expect one.
func (r *RequestContext) Context() context.Context { return r.ctx }

// CorrelationID returns the opaque correlation id for this request.
func (r *RequestContext) CorrelationID() string { return r.correlationID }

// WithDeadline returns a derived RequestContext bound by d from now, and
// the cancel function the caller must invoke to release resources.
func (r *RequestContext) WithDeadline(d time.Duration) (*RequestContext, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(r.ctx, d)
	return &RequestContext{ctx: ctx, correlationID: r.correlationID}, cancel
}

// Cancelled reports whether the underlying context has already been
// cancelled or timed out. Callers check this at loop boundaries and
// before expensive I/O.
func (r *RequestContext) Cancelled() bool {
	select {
	case <-r.ctx.Done():
		return true
	default:
		return false
	}
}

// Err returns the underlying context error (context.Canceled or
// context.DeadlineExceeded), or nil if not yet done.
func (r *RequestContext) Err() error { return r.ctx.Err() }
