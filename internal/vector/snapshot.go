package vector

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
)

// Snapshot is the versioned, on-disk representation of an Index, per
// "{version, dimension, params, records}".
type Snapshot struct {
	Version   int      `json:"version"`
	Dimension int      `json:"dimension"`
	Params    Params   `json:"params"`
	Records   []Record `json:"records"`
}

// ToSnapshot serializes the index's live records (orphans excluded),
// sorted by id so serialized output is stable across runs regardless of
// Go's randomized map iteration order.
func (idx *Index) ToSnapshot() *Snapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	records := make([]Record, 0, len(idx.idToKey))
	for id := range idx.idToKey {
		records = append(records, Record{ID: id, Vector: idx.vectors[id], Document: idx.documents[id]})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	return &Snapshot{
		Version:   SnapshotVersion,
		Dimension: idx.dimension,
		Params:    idx.params,
		Records:   records,
	}
}

// FromSnapshot rebuilds an Index by re-inserting every record in the
// snapshot's stored order. Rebuilding via Insert (rather than importing
// coder/hnsw's native binary graph export) keeps the on-disk format
// independent of the underlying ANN library's internal layout, so
// from_snapshot(snapshot(S)) round-trips even across coder/hnsw versions.
func FromSnapshot(snap *Snapshot) (*Index, *errs.Envelope) {
	if snap.Version != SnapshotVersion {
		return nil, errs.Invalid(errs.CodeSnapshotVersionMismatch, "unsupported vector snapshot version")
	}

	idx := New(snap.Dimension, snap.Params)
	for _, rec := range snap.Records {
		if len(rec.Vector) != snap.Dimension {
			return nil, errs.Invalid(errs.CodeDimensionMismatch, "snapshot record dimension mismatch")
		}
		if err := idx.Insert(rec.ID, rec.Vector, rec.Document); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// CollectionPath returns the snapshot file path for a named collection
// under the state directory:
// "<state_dir>/vector/collections/<collection>.json".
func CollectionPath(stateDir, collection string) string {
	return filepath.Join(stateDir, "vector", "collections", collection+".json")
}

// Save atomically writes idx's snapshot to path (temp file + rename).
func (idx *Index) Save(path string) *errs.Envelope {
	snap := idx.ToSnapshot()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.CodeInternal, "create vector collection directory", err, false)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errs.Internal("marshal vector snapshot", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.Wrap(errs.CodeInternal, "write temp vector snapshot", err, false)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errs.Wrap(errs.CodeInternal, "rename vector snapshot into place", err, false)
	}
	return nil
}

// Load reads and reconstructs an Index from path. A missing file returns
// (nil, nil) — callers treat that as "no collection yet".
func Load(path string) (*Index, *errs.Envelope) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.CodeInternal, "read vector snapshot", err, false)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errs.Invalid(errs.CodeSnapshotVersionMismatch, "corrupt vector snapshot")
	}
	return FromSnapshot(&snap)
}
