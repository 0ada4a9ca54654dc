package vector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertSearchAndDelete(t *testing.T) {
	idx := New(3, DefaultParams())

	require.Nil(t, idx.Insert("a", []float32{1, 0, 0}, Document{RelativePath: "a.go", StartLine: 1}))
	require.Nil(t, idx.Insert("b", []float32{0, 1, 0}, Document{RelativePath: "b.go", StartLine: 1}))
	assert.Equal(t, 2, idx.Count())

	results, err := idx.Search([]float32{1, 0, 0}, 5, nil)
	require.Nil(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)

	idx.Delete([]string{"a"})
	assert.Equal(t, 1, idx.Count())

	results, err = idx.Search([]float32{1, 0, 0}, 5, nil)
	require.Nil(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ID)
	}
}

func TestInsertDimensionMismatch(t *testing.T) {
	idx := New(3, DefaultParams())
	err := idx.Insert("a", []float32{1, 0}, Document{})
	require.NotNil(t, err)
}

func TestSearchDeterministicTieBreak(t *testing.T) {
	idx := New(2, DefaultParams())
	// Two identical vectors: ties must break on relativePath then startLine.
	require.Nil(t, idx.Insert("z", []float32{1, 0}, Document{RelativePath: "z.go", StartLine: 5}))
	require.Nil(t, idx.Insert("a2", []float32{1, 0}, Document{RelativePath: "a.go", StartLine: 2}))
	require.Nil(t, idx.Insert("a1", []float32{1, 0}, Document{RelativePath: "a.go", StartLine: 1}))

	results, err := idx.Search([]float32{1, 0}, 10, nil)
	require.Nil(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a1", results[0].ID)
	assert.Equal(t, "a2", results[1].ID)
	assert.Equal(t, "z", results[2].ID)
}

func TestSearchWithFilter(t *testing.T) {
	idx := New(2, DefaultParams())
	require.Nil(t, idx.Insert("go1", []float32{1, 0}, Document{RelativePath: "a.go", Language: "go"}))
	require.Nil(t, idx.Insert("py1", []float32{1, 0}, Document{RelativePath: "b.py", Language: "python"}))

	results, err := idx.Search([]float32{1, 0}, 10, func(d Document) bool { return d.Language == "python" })
	require.Nil(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "py1", results[0].ID)
}

func TestSnapshotRoundTrip(t *testing.T) {
	idx := New(3, DefaultParams())
	require.Nil(t, idx.Insert("a", []float32{1, 2, 3}, Document{RelativePath: "a.go", StartLine: 1}))
	require.Nil(t, idx.Insert("b", []float32{4, 5, 6}, Document{RelativePath: "b.go", StartLine: 1}))

	snap := idx.ToSnapshot()
	restored, err := FromSnapshot(snap)
	require.Nil(t, err)
	assert.Equal(t, idx.Count(), restored.Count())

	want, werr := idx.Search([]float32{1, 2, 3}, 5, nil)
	require.Nil(t, werr)
	got, gerr := restored.Search([]float32{1, 2, 3}, 5, nil)
	require.Nil(t, gerr)
	require.Equal(t, len(want), len(got))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.InDelta(t, want[i].Score, got[i].Score, 1e-4)
	}
}

func TestSaveLoadAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "collections", "code_chunks_test.json")

	idx := New(2, DefaultParams())
	require.Nil(t, idx.Insert("a", []float32{1, 0}, Document{RelativePath: "a.go"}))
	require.Nil(t, idx.Save(path))

	_, statErr := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(statErr), "temp file must not remain after rename")

	loaded, err := Load(path)
	require.Nil(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 1, loaded.Count())
}

func TestLoadMissingFileReturnsNilNotError(t *testing.T) {
	idx, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Nil(t, err)
	assert.Nil(t, idx)
}

func TestFromSnapshotVersionMismatch(t *testing.T) {
	snap := &Snapshot{Version: 999, Dimension: 2}
	_, err := FromSnapshot(snap)
	require.NotNil(t, err)
	assert.Equal(t, "vector:snapshot_version_mismatch", err.Code)
}
