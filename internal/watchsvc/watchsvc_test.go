package watchsvc

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherFiresOnChangeAfterDebounce(t *testing.T) {
	dir := t.TempDir()
	var calls int32

	w, err := New(dir, nil, 50*time.Millisecond, func() {
		atomic.AddInt32(&calls, 1)
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Start())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherCoalescesRapidEvents(t *testing.T) {
	dir := t.TempDir()
	var calls int32

	w, err := New(dir, nil, 100*time.Millisecond, func() {
		atomic.AddInt32(&calls, 1)
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Start())

	path := filepath.Join(dir, "a.txt")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("v"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(300 * time.Millisecond)
	require.LessOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}
