// Package search implements the single embed+ANN+filter+threshold
// search use case: validated query and bounds-checked options, one
// embed→search→filter pass. Hybrid fusion, BM25, reranking, and query
// decomposition are out of scope.
package search

import (
	"strings"

	"github.com/Luiz-Frias/semantic-code-agx/internal/adapters"
	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/filter"
	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
)

const (
	// DefaultTopK is used when a request leaves TopK unset (zero).
	DefaultTopK = 5
	// MaxTopK bounds the result count a single request may ask for.
	MaxTopK = 50
)

// Request is the validated input to Search.
type Request struct {
	Query          string
	TopK           int
	Threshold      float64
	HasThreshold   bool
	FilterExpr     string
	IncludeContent bool
}

// Result is the stable output DTO, one per matched chunk.
type Result struct {
	ChunkID      string  `json:"chunkId"`
	RelativePath string  `json:"relativePath"`
	StartLine    int     `json:"startLine"`
	EndLine      int     `json:"endLine"`
	Language     string  `json:"language"`
	Score        float32 `json:"score"`
	Content      string  `json:"content,omitempty"`
}

// Engine runs searches against one open collection.
type Engine struct {
	Embedder   adapters.Embedder
	Store      adapters.VectorStore
	Collection string
}

// New returns an Engine bound to collection, searching with embedder and
// store.
func New(embedder adapters.Embedder, store adapters.VectorStore, collection string) *Engine {
	return &Engine{Embedder: embedder, Store: store, Collection: collection}
}

// Search validates req, embeds the query, runs the ANN search, applies
// the threshold cut and content stripping, and returns results already
// in the store's deterministic (-score, relativePath asc, startLine asc)
// order.
func (e *Engine) Search(rc *rctx.RequestContext, req Request) ([]Result, *errs.Envelope) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, errs.Invalid(errs.CodeInvalidValue, "query must not be empty")
	}

	topK := req.TopK
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK < 1 || topK > MaxTopK {
		return nil, errs.Invalid(errs.CodeInvalidValue, "topK must be between 1 and 50")
	}
	if req.HasThreshold && (req.Threshold < 0 || req.Threshold > 1) {
		return nil, errs.Invalid(errs.CodeInvalidValue, "threshold must be between 0 and 1")
	}

	expr, env := filter.Parse(req.FilterExpr)
	if env != nil {
		return nil, env
	}

	vectors, env := e.Embedder.EmbedBatch(rc, []string{query})
	if env != nil {
		return nil, env
	}
	if len(vectors) != 1 {
		return nil, errs.Internal("embedder returned unexpected batch size", nil)
	}

	hits, env := e.Store.Search(rc, e.Collection, vectors[0], topK, expr)
	if env != nil {
		return nil, env
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		if req.HasThreshold && float64(h.Score) < req.Threshold {
			continue
		}
		r := Result{
			ChunkID:      h.ID,
			RelativePath: h.Document.RelativePath,
			StartLine:    h.Document.StartLine,
			EndLine:      h.Document.EndLine,
			Language:     h.Document.Language,
			Score:        h.Score,
		}
		if req.IncludeContent {
			r.Content = h.Document.Content
		}
		results = append(results, r)
	}
	return results, nil
}
