// Package localstore provides the local, file-backed implementations of
// adapters.VectorStore and adapters.FileSyncStore: a named-collection
// wrapper over internal/vector.Index with write-through snapshot
// persistence, and a thin pass-through to internal/merkle.Store.
//
// Each named collection is backed by one internal/vector.Index, saved
// atomically after mutating calls, at
// "<state_dir>/vector/collections/<name>.json".
package localstore

import (
	"sync"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/filter"
	"github.com/Luiz-Frias/semantic-code-agx/internal/merkle"
	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
	"github.com/Luiz-Frias/semantic-code-agx/internal/vector"
)

// VectorStore is the local, single-process adapters.VectorStore.
// Every mutating call persists the affected collection to disk
// immediately (write-through), so a crash between calls never loses a
// prior call's durability guarantee.
type VectorStore struct {
	mu          sync.RWMutex
	stateDir    string
	collections map[string]*vector.Index
}

// NewVectorStore returns a VectorStore rooted at stateDir (the
// ".context" directory).
func NewVectorStore(stateDir string) *VectorStore {
	return &VectorStore{stateDir: stateDir, collections: make(map[string]*vector.Index)}
}

func (v *VectorStore) path(name string) string {
	return vector.CollectionPath(v.stateDir, name)
}

// CreateCollection loads name's on-disk snapshot if present and its
// dimension matches, otherwise creates a fresh empty collection. It is
// idempotent: calling it again for an already-open collection is a
// no-op.
func (v *VectorStore) CreateCollection(rc *rctx.RequestContext, name string, dimension int, params vector.Params) *errs.Envelope {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.collections[name]; ok {
		return nil
	}

	loaded, env := vector.Load(v.path(name))
	if env != nil {
		return env
	}
	if loaded != nil {
		if loaded.Dimension() != dimension {
			return errs.Invalid(errs.CodeDimensionMismatch, "existing collection dimension does not match requested dimension")
		}
		v.collections[name] = loaded
		return nil
	}

	v.collections[name] = vector.New(dimension, params)
	return nil
}

func (v *VectorStore) get(name string) (*vector.Index, *errs.Envelope) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	idx, ok := v.collections[name]
	if !ok {
		return nil, errs.Invalid(errs.CodeMissingIndex, "collection not open: "+name)
	}
	return idx, nil
}

// Upsert inserts or overwrites records, then persists the collection.
func (v *VectorStore) Upsert(rc *rctx.RequestContext, collection string, records []vector.Record) *errs.Envelope {
	idx, env := v.get(collection)
	if env != nil {
		return env
	}
	for _, r := range records {
		if env := idx.Insert(r.ID, r.Vector, r.Document); env != nil {
			return env
		}
	}
	return idx.Save(v.path(collection))
}

// Search delegates to the open collection's Index.Search.
func (v *VectorStore) Search(rc *rctx.RequestContext, collection string, query []float32, topK int, expr *filter.Expr) ([]vector.Result, *errs.Envelope) {
	idx, env := v.get(collection)
	if env != nil {
		return nil, env
	}
	var pred vector.Predicate
	if expr != nil {
		pred = expr.Predicate()
	}
	return idx.Search(query, topK, pred)
}

// Delete removes ids, then persists the collection.
func (v *VectorStore) Delete(rc *rctx.RequestContext, collection string, ids []string) *errs.Envelope {
	idx, env := v.get(collection)
	if env != nil {
		return env
	}
	idx.Delete(ids)
	return idx.Save(v.path(collection))
}

// Clear replaces the collection with an empty index of the same
// dimension and the default HNSW parameters, then persists it.
func (v *VectorStore) Clear(rc *rctx.RequestContext, collection string) *errs.Envelope {
	v.mu.Lock()
	idx, ok := v.collections[collection]
	if !ok {
		v.mu.Unlock()
		return errs.Invalid(errs.CodeMissingIndex, "collection not open: "+collection)
	}
	fresh := vector.New(idx.Dimension(), vector.DefaultParams())
	v.collections[collection] = fresh
	v.mu.Unlock()
	return fresh.Save(v.path(collection))
}

// Count reports the open collection's live record count.
func (v *VectorStore) Count(rc *rctx.RequestContext, collection string) (int, *errs.Envelope) {
	idx, env := v.get(collection)
	if env != nil {
		return 0, env
	}
	return idx.Count(), nil
}

// FileSyncStore adapts internal/merkle.Store to adapters.FileSyncStore.
type FileSyncStore struct {
	store *merkle.Store
}

// NewFileSyncStore returns a FileSyncStore rooted at stateDir.
func NewFileSyncStore(stateDir string) *FileSyncStore {
	return &FileSyncStore{store: merkle.NewStore(stateDir)}
}

// LoadSnapshot returns the previous snapshot for absRoot, or (nil, nil)
// if none exists yet.
func (f *FileSyncStore) LoadSnapshot(rc *rctx.RequestContext, absRoot string) (*merkle.Snapshot, *errs.Envelope) {
	return f.store.Load(absRoot)
}

// SaveSnapshot atomically persists snap for absRoot.
func (f *FileSyncStore) SaveSnapshot(rc *rctx.RequestContext, absRoot string, snap *merkle.Snapshot) *errs.Envelope {
	return f.store.Save(absRoot, snap)
}
