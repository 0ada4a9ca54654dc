package merkle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodebaseIDWorkedExample(t *testing.T) {
	// worked example S3
	assert.Equal(t, "codebase_dbdae6de5a20", CodebaseID("/tmp/example-codebase-2"))
}

func TestCollectionNameWorkedExample(t *testing.T) {
	// worked example S2
	assert.Equal(t, "code_chunks_ea6f3b5e", CollectionName("/tmp/example-codebase", false))
	assert.Equal(t, "code_chunks_ea6f3b5e_hybrid", CollectionName("/tmp/example-codebase", true))
}

func TestBuildIsOrderIndependent(t *testing.T) {
	files := map[string]string{
		"b.go": "hash-b",
		"a.go": "hash-a",
		"c.go": "hash-c",
	}
	snapA := Build(files)
	snapB := Build(files)

	require.Equal(t, snapA.RootHash, snapB.RootHash)
	require.Equal(t, snapA.FileHashes, snapB.FileHashes)
	// Lexicographic ordering regardless of map iteration order.
	assert.Equal(t, "a.go", snapA.FileHashes[0].RelativePath)
	assert.Equal(t, "b.go", snapA.FileHashes[1].RelativePath)
	assert.Equal(t, "c.go", snapA.FileHashes[2].RelativePath)
}

func TestComputeDiffSoundness(t *testing.T) {
	prev := Build(map[string]string{
		"a.go": "1",
		"b.go": "2",
		"d.go": "4",
	})
	cur := Build(map[string]string{
		"a.go": "1",
		"b.go": "2-changed",
		"c.go": "3",
	})

	diff := ComputeDiff(prev, cur)

	assert.ElementsMatch(t, []string{"c.go"}, diff.Added)
	assert.ElementsMatch(t, []string{"d.go"}, diff.Removed)
	assert.ElementsMatch(t, []string{"b.go"}, diff.Modified)
	assert.ElementsMatch(t, []string{"a.go"}, diff.Unchanged)

	union := map[string]bool{}
	for _, p := range append(append(diff.Added, diff.Modified...), diff.Unchanged...) {
		union[p] = true
	}
	for _, fh := range cur.FileHashes {
		assert.True(t, union[fh.RelativePath])
	}
}

func TestComputeDiffNilPrevious(t *testing.T) {
	cur := Build(map[string]string{"a.go": "1"})
	diff := ComputeDiff(nil, cur)
	assert.Equal(t, []string{"a.go"}, diff.Added)
	assert.Empty(t, diff.Modified)
	assert.Empty(t, diff.Removed)
}
