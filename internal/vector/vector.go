// Package vector implements the local HNSW-backed vector kernel: an
// in-process approximate nearest-neighbor index with insert/search/delete
// and a versioned, crash-safe on-disk snapshot format, built on
// coder/hnsw's graph with cosine distance, lazy delete, and atomic
// save, with a JSON snapshot shape and deterministic result ordering.
package vector

import (
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
)

// SnapshotVersion is the current on-disk schema version.
const SnapshotVersion = 1

// Params are the tunable HNSW construction/search parameters. All have
// acceptable defaults.
type Params struct {
	M             int `json:"m"`             // max connections per node
	MaxLayer      int `json:"maxLayer"`
	EfConstruction int `json:"efConstruction"`
	EfSearch      int `json:"efSearch"`
	MaxElements   int `json:"maxElements"`
}

// DefaultParams returns the kernel's default tuning.
func DefaultParams() Params {
	return Params{M: 16, MaxLayer: 0, EfConstruction: 200, EfSearch: 20, MaxElements: 0}
}

// Document is the set of fields stored alongside each vector, used for
// result rendering and filter evaluation.
type Document struct {
	RelativePath  string `json:"relativePath"`
	StartLine     int    `json:"startLine"`
	EndLine       int    `json:"endLine"`
	Language      string `json:"language"`
	FileExtension string `json:"fileExtension"`
	Content       string `json:"content"`
}

// Record is one (id, vector, document) triple as stored in a collection.
type Record struct {
	ID       string    `json:"id"`
	Vector   []float32 `json:"vector"`
	Document Document  `json:"document"`
}

// Result is one ranked hit returned by Search.
type Result struct {
	Record
	Score float32
}

// Predicate evaluates a document for inclusion in search results; nil
// means "no filter" (an empty filter).
type Predicate func(Document) bool

// Index is the in-process HNSW-backed vector kernel. Safe for concurrent
// use: many readers / one writer.
type Index struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[uint64]
	dimension  int
	params     Params
	idToKey    map[string]uint64
	keyToID    map[uint64]string
	documents  map[string]Document
	vectors    map[string][]float32 // normalized vectors, kept alongside the graph for snapshotting
	nextKey    uint64
}

// New constructs an empty Index for the given dimension.
func New(dimension int, params Params) *Index {
	if params.M == 0 {
		params = DefaultParams()
	}
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = params.M
	graph.EfSearch = params.EfSearch
	graph.Ml = 0.25

	return &Index{
		graph:     graph,
		dimension: dimension,
		params:    params,
		idToKey:   make(map[string]uint64),
		keyToID:   make(map[uint64]string),
		documents: make(map[string]Document),
		vectors:   make(map[string][]float32),
	}
}

// Dimension returns the collection's fixed vector width.
func (idx *Index) Dimension() int { return idx.dimension }

// Insert adds or overwrites a record. Overwriting an existing id uses
// lazy deletion of the old graph node (orphaning it) rather than a true
// delete, working around coder/hnsw's last-node deletion bug.
func (idx *Index) Insert(id string, vec []float32, doc Document) *errs.Envelope {
	if len(vec) != idx.dimension {
		return errs.Invalid(errs.CodeDimensionMismatch, "vector dimension does not match collection")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if oldKey, exists := idx.idToKey[id]; exists {
		delete(idx.keyToID, oldKey)
		delete(idx.idToKey, id)
	}

	key := idx.nextKey
	idx.nextKey++

	normalized := normalize(vec)
	idx.graph.Add(hnsw.MakeNode(key, normalized))

	idx.idToKey[id] = key
	idx.keyToID[key] = id
	idx.documents[id] = doc
	idx.vectors[id] = normalized
	return nil
}

// Delete best-effort removes ids; unknown ids are ignored.
func (idx *Index) Delete(ids []string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, id := range ids {
		if key, ok := idx.idToKey[id]; ok {
			delete(idx.keyToID, key)
			delete(idx.idToKey, id)
			delete(idx.documents, id)
			delete(idx.vectors, id)
		}
	}
}

// Count returns the number of live (non-orphaned) records.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.idToKey)
}

// Search returns up to topK records ordered by cosine similarity
// descending, ties broken by (relativePath asc, startLine asc) for a
// fully deterministic order.
func (idx *Index) Search(query []float32, topK int, filter Predicate) ([]Result, *errs.Envelope) {
	if len(query) != idx.dimension {
		return nil, errs.Invalid(errs.CodeDimensionMismatch, "query dimension does not match collection")
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph.Len() == 0 {
		return []Result{}, nil
	}

	normalized := normalize(query)

	// Over-fetch from the graph because lazy-deleted and filtered-out
	// nodes must be skipped without shrinking the candidate pool below
	// topK when possible.
	fetch := topK * 4
	if fetch < topK+16 {
		fetch = topK + 16
	}
	if fetch > idx.graph.Len() {
		fetch = idx.graph.Len()
	}

	nodes := idx.graph.Search(normalized, fetch)

	results := make([]Result, 0, len(nodes))
	for _, node := range nodes {
		id, ok := idx.keyToID[node.Key]
		if !ok {
			continue // orphaned (lazy-deleted) node
		}
		doc := idx.documents[id]
		if filter != nil && !filter(doc) {
			continue
		}

		distance := idx.graph.Distance(normalized, node.Value)
		score := cosineDistanceToScore(distance)

		results = append(results, Result{
			Record: Record{ID: id, Vector: node.Value, Document: doc},
			Score:  score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Document.RelativePath != results[j].Document.RelativePath {
			return results[i].Document.RelativePath < results[j].Document.RelativePath
		}
		return results[i].Document.StartLine < results[j].Document.StartLine
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	var sumSquares float64
	for _, x := range out {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return out
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range out {
		out[i] *= inv
	}
	return out
}

// cosineDistanceToScore converts coder/hnsw's cosine distance (0..2)
// into a [-1, 1] similarity score.
func cosineDistanceToScore(distance float32) float32 {
	return 1.0 - distance
}
