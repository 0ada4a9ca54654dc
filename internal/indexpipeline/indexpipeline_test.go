package indexpipeline

import (
	"context"
	"sort"
	"testing"

	"github.com/Luiz-Frias/semantic-code-agx/internal/adapters"
	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/filter"
	"github.com/Luiz-Frias/semantic-code-agx/internal/ids"
	"github.com/Luiz-Frias/semantic-code-agx/internal/merkle"
	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
	"github.com/Luiz-Frias/semantic-code-agx/internal/vector"
	"github.com/stretchr/testify/require"
)

// fakeFS is an in-memory Filesystem over a flat file map, used to drive
// the pipeline end to end without touching disk.
type fakeFS struct {
	files map[string]string // relPath -> content
}

func (f *fakeFS) ListDir(rc *rctx.RequestContext, relDir string) ([]adapters.DirEntry, *errs.Envelope) {
	seen := map[string]adapters.DirEntry{}
	prefix := ""
	if relDir != "" {
		prefix = relDir + "/"
	}
	for path, content := range f.files {
		if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
			continue
		}
		rest := path[len(prefix):]
		name := rest
		isDir := false
		for i := 0; i < len(rest); i++ {
			if rest[i] == '/' {
				name = rest[:i]
				isDir = true
				break
			}
		}
		if _, ok := seen[name]; !ok {
			size := int64(0)
			if !isDir {
				size = int64(len(content))
			}
			seen[name] = adapters.DirEntry{Name: name, IsDir: isDir, Size: size}
		}
	}
	out := make([]adapters.DirEntry, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeFS) ReadFile(rc *rctx.RequestContext, relPath string, maxSize int64) ([]byte, *errs.Envelope) {
	content, ok := f.files[relPath]
	if !ok {
		return nil, errs.Invalid(errs.CodeInvalidPath, "no such file")
	}
	return []byte(content), nil
}

func (f *fakeFS) Stat(rc *rctx.RequestContext, relPath string) (adapters.DirEntry, *errs.Envelope) {
	content, ok := f.files[relPath]
	if !ok {
		return adapters.DirEntry{}, errs.Invalid(errs.CodeInvalidPath, "no such file")
	}
	return adapters.DirEntry{Name: relPath, Size: int64(len(content))}, nil
}

// lineSplitter returns each file's whole content as a single chunk,
// ignoring chunkSizeLines/overlapLines — enough to exercise the pipeline.
type lineSplitter struct{}

func (lineSplitter) Split(rc *rctx.RequestContext, content, languageHint string, chunkSizeLines, overlapLines int) ([]adapters.SplitChunk, *errs.Envelope) {
	return []adapters.SplitChunk{{StartLine: 1, EndLine: 1, Content: content}}, nil
}

// staticEmbedder returns a deterministic vector derived from text length.
type staticEmbedder struct{ dim int }

func (e staticEmbedder) EmbedBatch(rc *rctx.RequestContext, texts []string) ([][]float32, *errs.Envelope) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, e.dim)
		for j := range v {
			v[j] = float32((len(t) + j) % 7)
		}
		out[i] = v
	}
	return out, nil
}
func (e staticEmbedder) Dimension() int { return e.dim }
func (e staticEmbedder) DetectDimension(rc *rctx.RequestContext) (int, *errs.Envelope) {
	return e.dim, nil
}

// memStore is a minimal in-memory VectorStore backed by internal/vector.
type memStore struct {
	idx *vector.Index
}

func (m *memStore) CreateCollection(rc *rctx.RequestContext, name string, dimension int, params vector.Params) *errs.Envelope {
	m.idx = vector.New(dimension, params)
	return nil
}
func (m *memStore) Upsert(rc *rctx.RequestContext, collection string, records []vector.Record) *errs.Envelope {
	for _, r := range records {
		if env := m.idx.Insert(r.ID, r.Vector, r.Document); env != nil {
			return env
		}
	}
	return nil
}
func (m *memStore) Search(rc *rctx.RequestContext, collection string, query []float32, topK int, expr *filter.Expr) ([]vector.Result, *errs.Envelope) {
	var pred vector.Predicate
	if expr != nil {
		pred = expr.Predicate()
	}
	return m.idx.Search(query, topK, pred)
}
func (m *memStore) Delete(rc *rctx.RequestContext, collection string, ids []string) *errs.Envelope {
	m.idx.Delete(ids)
	return nil
}
func (m *memStore) Clear(rc *rctx.RequestContext, collection string) *errs.Envelope {
	m.idx = vector.New(m.idx.Dimension(), vector.DefaultParams())
	return nil
}
func (m *memStore) Count(rc *rctx.RequestContext, collection string) (int, *errs.Envelope) {
	return m.idx.Count(), nil
}

// memSyncStore is an in-memory FileSyncStore.
type memSyncStore struct {
	snap *merkle.Snapshot
}

func (s *memSyncStore) LoadSnapshot(rc *rctx.RequestContext, absRoot string) (*merkle.Snapshot, *errs.Envelope) {
	return s.snap, nil
}
func (s *memSyncStore) SaveSnapshot(rc *rctx.RequestContext, absRoot string, snap *merkle.Snapshot) *errs.Envelope {
	s.snap = snap
	return nil
}

func TestPipelineEndToEnd(t *testing.T) {
	fs := &fakeFS{files: map[string]string{
		"src/main.rs": "fn main() {\n    println!(\"hi\");\n}\n",
		"src/lib.rs":  "pub fn add(a: i32, b: i32) -> i32 { a + b }\n",
	}}

	rc := rctx.New(context.Background())
	cfg := DefaultConfig()
	cfg.Collection = "code_chunks_test"
	cfg.Dimension = 4

	store := &memStore{}
	require.Nil(t, store.CreateCollection(rc, cfg.Collection, cfg.Dimension, vector.DefaultParams()))
	syncStore := &memSyncStore{}

	prepared := NewPrepared(rc, cfg, fs, nil)
	scanned, env := prepared.Scan()
	require.Nil(t, env)
	require.Len(t, scanned.entries, 2)

	chunked, env := scanned.Chunk(lineSplitter{})
	require.Nil(t, env)
	require.Len(t, chunked.chunks, 2)

	embedded, env := chunked.Embed(staticEmbedder{dim: cfg.Dimension})
	require.Nil(t, env)
	require.Len(t, embedded.records, 2)
	for _, r := range embedded.records {
		require.Len(t, r.Vector, cfg.Dimension)
	}

	upserted, env := embedded.Upsert(store)
	require.Nil(t, env)
	require.Equal(t, 2, upserted.count)

	count, env := store.Count(rc, cfg.Collection)
	require.Nil(t, env)
	require.Equal(t, 2, count)

	completed, env := upserted.Complete(syncStore, "/tmp/example-codebase-2")
	require.Nil(t, env)
	require.Equal(t, 2, completed.Files)
	require.NotNil(t, syncStore.snap)
}

func TestPipelineChunkIDsAreStable(t *testing.T) {
	content := "fn main() {\n    println!(\"hi\");\n}\n"
	h := ids.ContentHash(content)
	id1 := ids.ChunkID("src/main.rs", 1, 3, h)
	id2 := ids.ChunkID("src/main.rs", 1, 3, h)
	require.Equal(t, id1, id2)
}
