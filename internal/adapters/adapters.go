// Package adapters declares the capability contracts the indexing and
// search pipeline is built against: filesystem, code splitter, embedder,
// vector store, and file-sync store. Concrete variants (local
// ONNX-style vs. remote HTTP embedder; local HNSW vs. remote vector DB)
// are tagged implementations selected by configuration, never a class
// hierarchy.
package adapters

import (
	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/filter"
	"github.com/Luiz-Frias/semantic-code-agx/internal/merkle"
	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
	"github.com/Luiz-Frias/semantic-code-agx/internal/vector"
)

// DirEntry is one sorted filesystem entry as returned by Filesystem.ListDir.
type DirEntry struct {
	Name  string
	IsDir bool
	Size  int64
}

// Filesystem is the read-only filesystem capability used by scanning and
// chunking. Implementations return deterministic, sorted entries and
// reject paths per internal/pathpolicy.
type Filesystem interface {
	ListDir(rc *rctx.RequestContext, relDir string) ([]DirEntry, *errs.Envelope)
	ReadFile(rc *rctx.RequestContext, relPath string, maxSize int64) ([]byte, *errs.Envelope)
	Stat(rc *rctx.RequestContext, relPath string) (DirEntry, *errs.Envelope)
}

// SplitChunk is one chunk produced by a CodeSplitter.
type SplitChunk struct {
	StartLine int
	EndLine   int
	Content   string
}

// CodeSplitter splits file content into language-aware (or line-based
// fallback) chunks. Overlap must be strictly less than size; chunking is
// deterministic and ordered by ascending start line.
type CodeSplitter interface {
	Split(rc *rctx.RequestContext, content string, languageHint string, chunkSizeLines, overlapLines int) ([]SplitChunk, *errs.Envelope)
}

// Embedder converts text into fixed-length dense vectors.
type Embedder interface {
	EmbedBatch(rc *rctx.RequestContext, texts []string) ([][]float32, *errs.Envelope)
	Dimension() int
	DetectDimension(rc *rctx.RequestContext) (int, *errs.Envelope)
}

// VectorStore is the capability contract for both the local HNSW-backed
// store and any remote vector database adapter; every method carries the
// same retry/cancellation semantics regardless of backend.
type VectorStore interface {
	CreateCollection(rc *rctx.RequestContext, name string, dimension int, params vector.Params) *errs.Envelope
	Upsert(rc *rctx.RequestContext, collection string, records []vector.Record) *errs.Envelope
	Search(rc *rctx.RequestContext, collection string, query []float32, topK int, expr *filter.Expr) ([]vector.Result, *errs.Envelope)
	Delete(rc *rctx.RequestContext, collection string, ids []string) *errs.Envelope
	Clear(rc *rctx.RequestContext, collection string) *errs.Envelope
	Count(rc *rctx.RequestContext, collection string) (int, *errs.Envelope)
}

// FileSyncStore loads and atomically saves a codebase's Merkle snapshot.
// LoadSnapshot returns (nil, nil) when no snapshot exists yet — "none" is
// not an error.
type FileSyncStore interface {
	LoadSnapshot(rc *rctx.RequestContext, absRoot string) (*merkle.Snapshot, *errs.Envelope)
	SaveSnapshot(rc *rctx.RequestContext, absRoot string, snap *merkle.Snapshot) *errs.Envelope
}
