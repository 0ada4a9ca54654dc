package localstore

import (
	"context"
	"testing"

	"github.com/Luiz-Frias/semantic-code-agx/internal/merkle"
	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
	"github.com/Luiz-Frias/semantic-code-agx/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorStoreUpsertSearchPersists(t *testing.T) {
	dir := t.TempDir()
	rc := rctx.New(context.Background())
	store := NewVectorStore(dir)

	require.Nil(t, store.CreateCollection(rc, "code_chunks_test", 3, vector.DefaultParams()))
	require.Nil(t, store.Upsert(rc, "code_chunks_test", []vector.Record{
		{ID: "a", Vector: []float32{1, 0, 0}, Document: vector.Document{RelativePath: "a.go"}},
	}))

	count, env := store.Count(rc, "code_chunks_test")
	require.Nil(t, env)
	assert.Equal(t, 1, count)

	results, env := store.Search(rc, "code_chunks_test", []float32{1, 0, 0}, 5, nil)
	require.Nil(t, env)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)

	reopened := NewVectorStore(dir)
	require.Nil(t, reopened.CreateCollection(rc, "code_chunks_test", 3, vector.DefaultParams()))
	count2, env := reopened.Count(rc, "code_chunks_test")
	require.Nil(t, env)
	assert.Equal(t, 1, count2)
}

func TestVectorStoreSearchUnknownCollectionFails(t *testing.T) {
	dir := t.TempDir()
	rc := rctx.New(context.Background())
	store := NewVectorStore(dir)
	_, env := store.Search(rc, "nope", []float32{1}, 5, nil)
	require.NotNil(t, env)
}

func TestVectorStoreClearEmptiesCollection(t *testing.T) {
	dir := t.TempDir()
	rc := rctx.New(context.Background())
	store := NewVectorStore(dir)
	require.Nil(t, store.CreateCollection(rc, "c", 2, vector.DefaultParams()))
	require.Nil(t, store.Upsert(rc, "c", []vector.Record{{ID: "x", Vector: []float32{1, 1}}}))

	require.Nil(t, store.Clear(rc, "c"))
	count, env := store.Count(rc, "c")
	require.Nil(t, env)
	assert.Equal(t, 0, count)
}

func TestFileSyncStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rc := rctx.New(context.Background())
	fs := NewFileSyncStore(dir)

	loaded, env := fs.LoadSnapshot(rc, "/tmp/example")
	require.Nil(t, env)
	assert.Nil(t, loaded)

	snap := merkle.Build(map[string]string{"a.go": "hash1"})
	require.Nil(t, fs.SaveSnapshot(rc, "/tmp/example", snap))

	loaded2, env := fs.LoadSnapshot(rc, "/tmp/example")
	require.Nil(t, env)
	require.NotNil(t, loaded2)
	assert.Equal(t, snap.RootHash, loaded2.RootHash)
}
