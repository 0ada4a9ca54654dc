package retry

import (
	"context"
	"testing"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelayMs: 1, MaxDelayMs: 5, JitterRatioPct: 0}
}

func TestDoSucceedsWithoutRetry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func() *errs.Envelope {
		calls++
		return nil
	})
	require.Nil(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesRetriableUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func() *errs.Envelope {
		calls++
		if calls < 2 {
			return errs.Timeout("slow")
		}
		return nil
	})
	require.Nil(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoStopsOnNonRetriable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func() *errs.Envelope {
		calls++
		return errs.Invalid(errs.CodeInvalidValue, "bad input")
	})
	require.NotNil(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, errs.CodeInvalidValue, err.Code)
}

func TestDoExhaustsRetriesAndPreservesCode(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func() *errs.Envelope {
		calls++
		return errs.Timeout("still slow")
	})
	require.NotNil(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, errs.CodeTimeout, err.Code)
	assert.Equal(t, errs.NonRetriable, err.Class)
}

func TestDoRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, fastPolicy(), func() *errs.Envelope {
		t.Fatal("fn should not be called after cancellation")
		return nil
	})
	require.NotNil(t, err)
	assert.Equal(t, errs.CodeCancelled, err.Code)
}

func TestDelayCapsAtMaxDelay(t *testing.T) {
	p := Policy{MaxAttempts: 10, BaseDelayMs: 1000, MaxDelayMs: 4000, JitterRatioPct: 0}
	assert.Equal(t, int64(1000), p.delay(1).Milliseconds())
	assert.Equal(t, int64(2000), p.delay(2).Milliseconds())
	assert.Equal(t, int64(4000), p.delay(3).Milliseconds())
	assert.Equal(t, int64(4000), p.delay(6).Milliseconds())
}
