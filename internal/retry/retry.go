// Package retry implements an exponential-backoff-with-jitter retry
// policy shared by the embedding and upsert pipeline stages, with
// named parameters (maxAttempts, baseDelayMs, maxDelayMs,
// jitterRatioPct) and failures classified via
// internal/errs.Envelope.Class.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
)

// Policy configures retry behavior.
type Policy struct {
	MaxAttempts    int // 1..=10
	BaseDelayMs    int // 1..=60_000
	MaxDelayMs     int // 1..=600_000
	JitterRatioPct int // 0..=100
}

// DefaultPolicy returns reasonable millisecond-based defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelayMs:    1000,
		MaxDelayMs:     16000,
		JitterRatioPct: 20,
	}
}

// delay computes min(maxDelayMs, baseDelayMs * 2^(attempt-1)) jittered by
// ±jitterRatioPct%.
func (p Policy) delay(attempt int) time.Duration {
	base := float64(p.BaseDelayMs)
	for i := 1; i < attempt; i++ {
		base *= 2
		if base > float64(p.MaxDelayMs) {
			base = float64(p.MaxDelayMs)
			break
		}
	}
	if p.JitterRatioPct > 0 {
		ratio := float64(p.JitterRatioPct) / 100.0
		jitter := base * ratio * (rand.Float64()*2 - 1)
		base += jitter
		if base < 0 {
			base = 0
		}
	}
	return time.Duration(base) * time.Millisecond
}

// Do executes fn, retrying on errors whose Envelope.Class is Retriable up
// to MaxAttempts total attempts. Non-retriable envelopes and exhausted
// retries are returned immediately/as-is, preserving the original code
// ("Retriable errors ... exhausted retries surface as
// Unexpected/NonRetriable with the original code preserved").
func Do(ctx context.Context, p Policy, fn func() *errs.Envelope) *errs.Envelope {
	var last *errs.Envelope
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return errs.Cancelled()
		}

		env := fn()
		if env == nil {
			return nil
		}
		last = env
		if env.Class != errs.Retriable || attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return errs.Cancelled()
		case <-time.After(p.delay(attempt)):
		}
	}

	if last.Class == errs.Retriable {
		exhausted := errs.New(errs.KindUnexpected, errs.NonRetriable, last.Code, "retries exhausted: "+last.Message, last, nil)
		return exhausted
	}
	return last
}
