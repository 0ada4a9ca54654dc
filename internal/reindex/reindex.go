// Package reindex implements change-driven reindexing: scan, compute the
// current Merkle snapshot, diff it against the previous one, delete
// vectors belonging to removed/modified files, then run the indexing
// pipeline's chunk/embed/upsert stages restricted to added/modified
// paths. Reconciliation is Merkle-diff-driven over a full rescan,
// rather than event-driven off individual filesystem notifications.
package reindex

import (
	"github.com/Luiz-Frias/semantic-code-agx/internal/adapters"
	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/filter"
	"github.com/Luiz-Frias/semantic-code-agx/internal/ignore"
	"github.com/Luiz-Frias/semantic-code-agx/internal/indexpipeline"
	"github.com/Luiz-Frias/semantic-code-agx/internal/merkle"
	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
)

// Adapters bundles the capability contracts a reindex run needs.
type Adapters struct {
	FS        adapters.Filesystem
	Ignore    *ignore.Matcher
	Splitter  adapters.CodeSplitter
	Embedder  adapters.Embedder
	Store     adapters.VectorStore
	SyncStore adapters.FileSyncStore
}

// Result summarizes one reindex run.
type Result struct {
	Added         int
	Modified      int
	Removed       int
	Unchanged     int
	ChunksDeleted int
	UpsertedCount int
}

// Run scans absRoot, diffs against the previously saved snapshot, removes
// vectors for removed/modified files, reprocesses added/modified files
// through the indexing pipeline, and saves the new snapshot. The new
// snapshot covers the full current file set even though only
// added/modified files are reprocessed, so unchanged files keep their
// existing vectors untouched.
func Run(rc *rctx.RequestContext, cfg indexpipeline.Config, ad Adapters, absRoot string) (*Result, *errs.Envelope) {
	previous, env := ad.SyncStore.LoadSnapshot(rc, absRoot)
	if env != nil {
		return nil, env
	}

	scanned, env := indexpipeline.NewPrepared(rc, cfg, ad.FS, ad.Ignore).Scan()
	if env != nil {
		return nil, env
	}

	fileHashes := make(map[string]string, len(scanned.Entries()))
	for _, entry := range scanned.Entries() {
		content, env := ad.FS.ReadFile(rc, entry.RelativePath, cfg.MaxFileSizeBytes)
		if env != nil {
			return nil, env
		}
		fileHashes[entry.RelativePath] = merkle.HashBytes(content)
	}
	current := merkle.Build(fileHashes)
	diff := merkle.ComputeDiff(previous, current)

	chunksDeleted := 0
	for _, p := range diff.Removed {
		n, env := deleteFileChunks(rc, ad, cfg, p)
		if env != nil {
			return nil, env
		}
		chunksDeleted += n
	}
	for _, p := range diff.Modified {
		n, env := deleteFileChunks(rc, ad, cfg, p)
		if env != nil {
			return nil, env
		}
		chunksDeleted += n
	}

	changed := make(map[string]bool, len(diff.Added)+len(diff.Modified))
	for _, p := range diff.Added {
		changed[p] = true
	}
	for _, p := range diff.Modified {
		changed[p] = true
	}

	upsertedCount := 0
	if len(changed) > 0 {
		chunked, env := scanned.Restrict(changed).Chunk(ad.Splitter)
		if env != nil {
			return nil, env
		}
		embedded, env := chunked.Embed(ad.Embedder)
		if env != nil {
			return nil, env
		}
		upserted, env := embedded.Upsert(ad.Store)
		if env != nil {
			return nil, env
		}
		upsertedCount = upserted.Count()
	}

	if env := ad.SyncStore.SaveSnapshot(rc, absRoot, current); env != nil {
		return nil, env
	}

	return &Result{
		Added:         len(diff.Added),
		Modified:      len(diff.Modified),
		Removed:       len(diff.Removed),
		Unchanged:     len(diff.Unchanged),
		ChunksDeleted: chunksDeleted,
		UpsertedCount: upsertedCount,
	}, nil
}

// deleteFileChunks removes every vector whose relativePath equals p,
// enumerated deterministically via filter.relativePath == p. Passing
// topK equal to the collection's full count forces the ANN index's
// over-fetch to cover every live node for this file's chunk-enumeration
// query.
func deleteFileChunks(rc *rctx.RequestContext, ad Adapters, cfg indexpipeline.Config, p string) (int, *errs.Envelope) {
	count, env := ad.Store.Count(rc, cfg.Collection)
	if env != nil {
		return 0, env
	}
	if count == 0 {
		return 0, nil
	}

	expr, env := filter.Parse(`relativePath == "` + p + `"`)
	if env != nil {
		return 0, env
	}

	zero := make([]float32, cfg.Dimension)
	hits, env := ad.Store.Search(rc, cfg.Collection, zero, count, expr)
	if env != nil {
		return 0, env
	}
	if len(hits) == 0 {
		return 0, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	if env := ad.Store.Delete(rc, cfg.Collection, ids); env != nil {
		return 0, env
	}
	return len(ids), nil
}
