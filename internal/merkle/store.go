package merkle

import (
	"crypto/md5" //nolint:gosec // used only as a stable, short path-keying hash, not for security
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
)

// KeyForRoot derives the filename-safe key used to locate a codebase's
// snapshot on disk: the first 12 hex characters of MD5(absoluteRoot).
//
// The spec's data-model table describes CodebaseId as "codebase_<16 hex>",
// but a worked example pins codebaseId to 12 hex
// characters derived from MD5 of the absolute root; this package follows
// the literal worked example since it is the more concrete of the two
// (see DESIGN.md "codebase id / collection name derivation").
func KeyForRoot(absRoot string) string {
	sum := md5.Sum([]byte(absRoot)) //nolint:gosec
	return hex.EncodeToString(sum[:])[:12]
}

// CodebaseID derives the opaque CodebaseId for an absolute codebase root.
func CodebaseID(absRoot string) string {
	return "codebase_" + KeyForRoot(absRoot)
}

// SnapshotPath returns the per-root snapshot file path under the state
// directory: ".context/sync/<first 12 hex of md5(root)>.json".
func SnapshotPath(stateDir, absRoot string) string {
	return filepath.Join(stateDir, "sync", KeyForRoot(absRoot)+".json")
}

// Store persists and loads Snapshots from the state directory using
// atomic temp+rename writes.
type Store struct {
	StateDir string
}

// NewStore returns a Store rooted at stateDir (the ".context" directory).
func NewStore(stateDir string) *Store {
	return &Store{StateDir: stateDir}
}

// Load reads the snapshot for absRoot. A missing file is not an error: it
// returns (nil, nil), signalling "treat everything as added" per
// documented failure semantics.
func (s *Store) Load(absRoot string) (*Snapshot, *errs.Envelope) {
	path := SnapshotPath(s.StateDir, absRoot)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.CodeCorruptSnapshot, "read merkle snapshot", err, false)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errs.Wrap(errs.CodeCorruptSnapshot, "parse merkle snapshot", err, false)
	}
	return &snap, nil
}

// Save atomically writes snap for absRoot (write to a temp sibling, then
// rename).
func (s *Store) Save(absRoot string, snap *Snapshot) *errs.Envelope {
	path := SnapshotPath(s.StateDir, absRoot)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.CodeInternal, "create sync directory", err, false)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errs.Internal("marshal merkle snapshot", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.Wrap(errs.CodeInternal, "write temp snapshot", err, false)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errs.Wrap(errs.CodeInternal, "rename snapshot into place", err, false)
	}
	return nil
}

// CollectionName derives the dense/hybrid collection name for a codebase
// root: "code_chunks_<8 hex>" or "..._hybrid". The 8 hex digits are
// the first 8 characters of MD5(absoluteRoot).
func CollectionName(absRoot string, hybrid bool) string {
	sum := md5.Sum([]byte(absRoot)) //nolint:gosec
	short := hex.EncodeToString(sum[:])[:8]
	name := fmt.Sprintf("code_chunks_%s", short)
	if hybrid {
		name += "_hybrid"
	}
	return name
}
