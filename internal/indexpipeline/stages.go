package indexpipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Luiz-Frias/semantic-code-agx/internal/adapters"
	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/ids"
	"github.com/Luiz-Frias/semantic-code-agx/internal/ignore"
	"github.com/Luiz-Frias/semantic-code-agx/internal/merkle"
	"github.com/Luiz-Frias/semantic-code-agx/internal/pathpolicy"
	"github.com/Luiz-Frias/semantic-code-agx/internal/pipeline"
	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
	"github.com/Luiz-Frias/semantic-code-agx/internal/retry"
	"github.com/Luiz-Frias/semantic-code-agx/internal/vector"
)

// FileEntry is one scanned file, ordered and filtered during the
// scan stage.
type FileEntry struct {
	RelativePath string
	Size         int64
	Language     string
}

// Prepared is the initial stage: configuration and adapters bound, no
// work done yet.
type Prepared struct {
	rc  *rctx.RequestContext
	cfg Config
	fs  adapters.Filesystem
	ign *ignore.Matcher
}

// NewPrepared constructs the pipeline's entry stage.
func NewPrepared(rc *rctx.RequestContext, cfg Config, fs adapters.Filesystem, ign *ignore.Matcher) *Prepared {
	return &Prepared{rc: rc, cfg: cfg, fs: fs, ign: ign}
}

// Scanned holds the ordered file list produced by Prepared.Scan.
type Scanned struct {
	rc      *rctx.RequestContext
	cfg     Config
	fs      adapters.Filesystem
	entries []FileEntry
}

// Scan walks root via the filesystem adapter, applying the ignore policy
// and path validation, and returns the Scanned stage. Cancellation is
// observed between directory listings.
func (p *Prepared) Scan() (*Scanned, *errs.Envelope) {
	var entries []FileEntry
	var walk func(relDir string) *errs.Envelope
	walk = func(relDir string) *errs.Envelope {
		if p.rc.Cancelled() {
			return errs.Cancelled()
		}
		dirEntries, env := p.fs.ListDir(p.rc, relDir)
		if env != nil {
			return env
		}
		for _, de := range dirEntries {
			rel := de.Name
			if relDir != "" {
				rel = relDir + "/" + de.Name
			}
			if !pathpolicy.Accept(rel) {
				continue
			}
			if p.ign != nil && p.ign.Ignored(rel) {
				continue
			}
			if de.IsDir {
				if err := walk(rel); err != nil {
					return err
				}
				continue
			}
			if p.cfg.MaxFileSizeBytes > 0 && de.Size > p.cfg.MaxFileSizeBytes {
				continue
			}
			if !extensionAllowed(rel, p.cfg.AllowedExtensions) {
				continue
			}
			entries = append(entries, FileEntry{
				RelativePath: rel,
				Size:         de.Size,
				Language:     languageForExtension(rel),
			})
			if p.cfg.MaxFiles > 0 && len(entries) >= p.cfg.MaxFiles {
				return nil
			}
		}
		return nil
	}

	if err := walk(""); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].RelativePath < entries[j].RelativePath })
	return &Scanned{rc: p.rc, cfg: p.cfg, fs: p.fs, entries: entries}, nil
}

// Entries returns the scanned file list in scan order. Exposed for
// callers (change-driven reindexing) that need the full file set to
// compute a Merkle snapshot independently of which subset Chunk
// ultimately processes.
func (s *Scanned) Entries() []FileEntry {
	out := make([]FileEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Restrict returns a Scanned stage holding only the entries whose
// RelativePath is in keep, preserving scan order. Used by change-driven
// reindexing to run stages 2-5 over added/modified paths only while the
// full scan still drives Merkle-diff computation.
func (s *Scanned) Restrict(keep map[string]bool) *Scanned {
	filtered := make([]FileEntry, 0, len(keep))
	for _, e := range s.entries {
		if keep[e.RelativePath] {
			filtered = append(filtered, e)
		}
	}
	return &Scanned{rc: s.rc, cfg: s.cfg, fs: s.fs, entries: filtered}
}

func extensionAllowed(relPath string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	ext := strings.TrimPrefix(filepath.Ext(relPath), ".")
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}

func languageForExtension(relPath string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(relPath), "."))
	switch ext {
	case "go":
		return "go"
	case "rs":
		return "rust"
	case "py":
		return "python"
	case "js", "mjs", "cjs":
		return "javascript"
	case "ts":
		return "typescript"
	case "tsx":
		return "tsx"
	case "java":
		return "java"
	case "c", "h":
		return "c"
	case "cc", "cpp", "cxx", "hpp":
		return "cpp"
	default:
		return ext
	}
}

// PendingChunk is one chunk produced by Scanned.Chunk, awaiting embedding.
type PendingChunk struct {
	ChunkID       string
	RelativePath  string
	StartLine     int
	EndLine       int
	Language      string
	FileExtension string
	Content       string
	ContentHash   string
}

// Chunked holds the ordered chunk list produced by Scanned.Chunk, plus the
// per-file content hashes needed to build the new Merkle snapshot once
// the pipeline reaches Completed.
type Chunked struct {
	rc         *rctx.RequestContext
	cfg        Config
	chunks     []PendingChunk
	fileHashes map[string]string
}

// Chunk reads each scanned file (bounded by MaxInFlightFiles) and splits
// it via splitter, dropping oversized chunks.
// Non-UTF-8 files are skipped with a warning. Output preserves file
// order, and within a file, split order (ascending start line).
func (s *Scanned) Chunk(splitter adapters.CodeSplitter) (*Chunked, *errs.Envelope) {
	pool := pipeline.NewWorkerPool(s.cfg.MaxInFlightFiles)
	ctx := s.rc.Context()

	type perFile struct {
		relPath  string
		fileHash string
		chunks   []PendingChunk
	}

	results, err := pool.Map(ctx, len(s.entries), func(ctx context.Context, i int) (any, error) {
		entry := s.entries[i]
		rc := rctx.WithCorrelationID(ctx, s.rc.CorrelationID())

		content, env := s.fs.ReadFile(rc, entry.RelativePath, s.cfg.MaxFileSizeBytes)
		if env != nil {
			return nil, env
		}
		fileHash := merkle.HashBytes(content)
		if !utf8.Valid(content) {
			slog.Warn("indexpipeline: skipping non-UTF-8 file", slog.String("relativePath", entry.RelativePath))
			return perFile{relPath: entry.RelativePath, fileHash: fileHash}, nil
		}

		split, env := splitter.Split(rc, string(content), entry.Language, s.cfg.ChunkSizeLines, s.cfg.OverlapLines)
		if env != nil {
			return nil, env
		}

		out := make([]PendingChunk, 0, len(split))
		for _, c := range split {
			if s.cfg.MaxChunkChars > 0 && len(c.Content) > s.cfg.MaxChunkChars {
				continue
			}
			contentHash := ids.ContentHash(c.Content)
			out = append(out, PendingChunk{
				ChunkID:       ids.ChunkID(entry.RelativePath, c.StartLine, c.EndLine, contentHash),
				RelativePath:  entry.RelativePath,
				StartLine:     c.StartLine,
				EndLine:       c.EndLine,
				Language:      entry.Language,
				FileExtension: strings.TrimPrefix(filepath.Ext(entry.RelativePath), "."),
				Content:       c.Content,
				ContentHash:   contentHash,
			})
		}
		return perFile{relPath: entry.RelativePath, fileHash: fileHash, chunks: out}, nil
	})
	if err != nil {
		if env, ok := err.(*errs.Envelope); ok {
			return nil, env
		}
		return nil, errs.Wrap("splitter:read_failed", err.Error(), err, false)
	}

	var all []PendingChunk
	fileHashes := make(map[string]string, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		pf := r.(perFile)
		fileHashes[pf.relPath] = pf.fileHash
		all = append(all, pf.chunks...)
	}

	return &Chunked{rc: s.rc, cfg: s.cfg, chunks: all, fileHashes: fileHashes}, nil
}

// Embedded holds the chunk/vector pairs produced by Chunked.Embed.
type Embedded struct {
	rc         *rctx.RequestContext
	cfg        Config
	records    []vector.Record
	fileHashes map[string]string
}

// Embed accumulates chunks into EmbeddingBatchSize batches and submits up
// to MaxInFlightEmbeddingBatches concurrently, retrying retriable
// failures per cfg.Retry. Vectors are paired
// with their source chunks in input order using the worker pool's
// ordering guarantee.
func (c *Chunked) Embed(embedder adapters.Embedder) (*Embedded, *errs.Envelope) {
	batchSize := c.cfg.EmbeddingBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	var batches [][]PendingChunk
	for i := 0; i < len(c.chunks); i += batchSize {
		end := i + batchSize
		if end > len(c.chunks) {
			end = len(c.chunks)
		}
		batches = append(batches, c.chunks[i:end])
	}

	pool := pipeline.NewWorkerPool(c.cfg.MaxInFlightEmbeddingBatches)
	ctx := c.rc.Context()

	results, err := pool.Map(ctx, len(batches), func(ctx context.Context, i int) (any, error) {
		batch := batches[i]
		texts := make([]string, len(batch))
		for j, pc := range batch {
			texts[j] = pc.Content
		}

		var vecs [][]float32
		retryErr := retry.Do(ctx, c.cfg.Retry, func() *errs.Envelope {
			v, env := embedder.EmbedBatch(rctx.WithCorrelationID(ctx, c.rc.CorrelationID()), texts)
			if env != nil {
				return env
			}
			vecs = v
			return nil
		})
		if retryErr != nil {
			return nil, retryErr
		}

		records := make([]vector.Record, len(batch))
		for j, pc := range batch {
			records[j] = vector.Record{
				ID: pc.ChunkID,
				Document: vector.Document{
					RelativePath:  pc.RelativePath,
					StartLine:     pc.StartLine,
					EndLine:       pc.EndLine,
					Language:      pc.Language,
					FileExtension: pc.FileExtension,
					Content:       pc.Content,
				},
			}
			if j < len(vecs) {
				records[j].Vector = vecs[j]
			}
		}
		return records, nil
	})
	if err != nil {
		if env, ok := err.(*errs.Envelope); ok {
			return nil, env
		}
		return nil, errs.Wrap("embed:failed", err.Error(), err, false)
	}

	var all []vector.Record
	for _, r := range results {
		if r == nil {
			continue
		}
		all = append(all, r.([]vector.Record)...)
	}

	return &Embedded{rc: c.rc, cfg: c.cfg, records: all, fileHashes: c.fileHashes}, nil
}

// Upserted holds the count of records written by Embedded.Upsert.
type Upserted struct {
	rc         *rctx.RequestContext
	cfg        Config
	count      int
	fileHashes map[string]string
}

// Count reports how many records Upsert wrote.
func (u *Upserted) Count() int { return u.count }

// Upsert batches records into VectorBatchSize groups and submits up to
// MaxInFlightInserts concurrently. Upserts are idempotent: upserting an
// existing chunkId overwrites the record.
func (e *Embedded) Upsert(store adapters.VectorStore) (*Upserted, *errs.Envelope) {
	batchSize := e.cfg.VectorBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	var batches [][]vector.Record
	for i := 0; i < len(e.records); i += batchSize {
		end := i + batchSize
		if end > len(e.records) {
			end = len(e.records)
		}
		batches = append(batches, e.records[i:end])
	}

	pool := pipeline.NewWorkerPool(e.cfg.MaxInFlightInserts)
	ctx := e.rc.Context()

	_, err := pool.Map(ctx, len(batches), func(ctx context.Context, i int) (any, error) {
		rc := rctx.WithCorrelationID(ctx, e.rc.CorrelationID())
		retryErr := retry.Do(ctx, e.cfg.Retry, func() *errs.Envelope {
			return store.Upsert(rc, e.cfg.Collection, batches[i])
		})
		if retryErr != nil {
			return nil, retryErr
		}
		return nil, nil
	})
	if err != nil {
		if env, ok := err.(*errs.Envelope); ok {
			return nil, env
		}
		return nil, errs.Wrap("upsert:failed", err.Error(), err, false)
	}

	return &Upserted{rc: e.rc, cfg: e.cfg, count: len(e.records), fileHashes: e.fileHashes}, nil
}

// Completed is the terminal stage, reached once the new Merkle snapshot
// has been saved.
type Completed struct {
	Files         int
	UpsertedCount int
}

// Complete computes the new Merkle snapshot from the scanned file hashes
// and saves it atomically via syncStore. The
// caller is responsible for not reaching this stage when a non-retriable
// failure occurred earlier — the snapshot must only be saved once the
// pipeline has fully succeeded, so that a failed run reprocesses the same
// files next time.
func (u *Upserted) Complete(syncStore adapters.FileSyncStore, absRoot string) (*Completed, *errs.Envelope) {
	snap := merkle.Build(u.fileHashes)
	if env := syncStore.SaveSnapshot(u.rc, absRoot, snap); env != nil {
		return nil, env
	}
	return &Completed{Files: len(u.fileHashes), UpsertedCount: u.count}, nil
}
