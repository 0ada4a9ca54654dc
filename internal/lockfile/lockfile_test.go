package lockfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireSucceedsWhenUnheld(t *testing.T) {
	dir := t.TempDir()
	lock := Acquire(dir)
	require.NotNil(t, lock)
	assert.True(t, lock.Acquired)
	lock.Release()
}

func TestAcquireFailsOpenWhenAlreadyHeld(t *testing.T) {
	dir := t.TempDir()
	first := Acquire(dir)
	require.True(t, first.Acquired)
	defer first.Release()

	second := Acquire(dir)
	require.NotNil(t, second)
	assert.False(t, second.Acquired)
	second.Release() // no-op, must not panic
}

func TestReleaseOnNilLockDoesNotPanic(t *testing.T) {
	var l *Lock
	assert.NotPanics(t, func() { l.Release() })
}
