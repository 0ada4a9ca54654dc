package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlwaysIgnoresStateDir(t *testing.T) {
	m, err := New(nil, "")
	require.NoError(t, err)
	assert.True(t, m.Ignored(".context/config.toml"))
	assert.True(t, m.Ignored(".context"))
}

func TestConfiguredAndFilePatternsMerge(t *testing.T) {
	dir := t.TempDir()
	ignoreFile := filepath.Join(dir, ".contextignore")
	require.NoError(t, os.WriteFile(ignoreFile, []byte("# comment\n\nnode_modules\ntarget\n"), 0o644))

	m, err := New([]string{"vendor"}, ignoreFile)
	require.NoError(t, err)

	assert.True(t, m.Ignored("vendor/foo.go"))
	assert.True(t, m.Ignored("project/node_modules/x.js"))
	assert.True(t, m.Ignored("target/debug/bin"))
	assert.False(t, m.Ignored("src/main.go"))
}

func TestSegmentSubsequenceNotSubstring(t *testing.T) {
	m, err := New([]string{"test"}, "")
	require.NoError(t, err)
	// "test" as a path segment should match, but "testing" as a
	// different segment must not (no substring matching).
	assert.True(t, m.Ignored("a/test/b.go"))
	assert.False(t, m.Ignored("a/testing/b.go"))
}

func TestNoGlobOrNegationSupport(t *testing.T) {
	m, err := New([]string{"*.log", "!keep.log"}, "")
	require.NoError(t, err)
	// Patterns are matched literally; "*.log" never matches any real
	// segment, and "!keep.log" is a literal segment too.
	assert.False(t, m.Ignored("debug.log"))
	assert.False(t, m.Ignored("keep.log"))
}

func TestCacheReusesMatcher(t *testing.T) {
	c, err := NewCache(8)
	require.NoError(t, err)

	builds := 0
	build := func() (*Matcher, error) {
		builds++
		return New(nil, "")
	}

	_, err = c.GetOrBuild("/tmp/x", build)
	require.NoError(t, err)
	_, err = c.GetOrBuild("/tmp/x", build)
	require.NoError(t, err)
	assert.Equal(t, 1, builds)
}
