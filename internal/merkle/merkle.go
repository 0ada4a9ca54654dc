// Package merkle computes a deterministic, content-addressed summary of a
// working tree and diffs two such summaries to drive change-based
// reindexing.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// SnapshotVersion is the current on-disk schema version for Snapshot.
const SnapshotVersion = 1

// FileHash is one file's content-addressed entry in a snapshot.
type FileHash struct {
	RelativePath string `json:"relativePath"`
	Hash         string `json:"fileHash"`
}

// Node is one entry of the snapshot's explicit DAG, serialized as a flat
// node list (plus a root id array) rather than a recursive structure, so
// serialization stays deterministic and language-neutral.
type Node struct {
	ID       string   `json:"id"`
	Payload  string   `json:"payload"`
	Children []string `json:"children,omitempty"`
}

// DAG is the explicit parent/child id list backing a snapshot's root hash.
type DAG struct {
	Nodes   []Node   `json:"nodes"`
	RootIDs []string `json:"rootIds"`
}

// Snapshot is the content-addressed summary of a working tree at one
// point in time.
type Snapshot struct {
	Version   int        `json:"version"`
	FileHashes []FileHash `json:"fileHashes"`
	DAG       DAG        `json:"dag"`
	RootHash  string     `json:"rootHash"`
}

// HashBytes returns the SHA-256 hash of raw file bytes, hex-encoded.
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// nodePayload renders the per-node payload string "<relativePath>:<fileHash>".
func nodePayload(relativePath, fileHash string) string {
	return relativePath + ":" + fileHash
}

// Build constructs a Snapshot from a set of (relativePath, fileHash) pairs.
// The input order is irrelevant: Build always sorts by relativePath before
// hashing, so two snapshots over the same file set serialize identically
// regardless of how the caller discovered the files (testable property 3).
func Build(files map[string]string) *Snapshot {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	fileHashes := make([]FileHash, 0, len(paths))
	nodes := make([]Node, 0, len(paths))
	rootIDs := make([]string, 0, len(paths))
	hasher := sha256.New()

	for _, p := range paths {
		h := files[p]
		fileHashes = append(fileHashes, FileHash{RelativePath: p, Hash: h})
		hasher.Write([]byte(h))

		payload := nodePayload(p, h)
		sum := sha256.Sum256([]byte(payload))
		id := hex.EncodeToString(sum[:])
		nodes = append(nodes, Node{ID: id, Payload: payload})
		rootIDs = append(rootIDs, id)
	}

	rootHash := hex.EncodeToString(hasher.Sum(nil))

	return &Snapshot{
		Version:    SnapshotVersion,
		FileHashes: fileHashes,
		DAG:        DAG{Nodes: nodes, RootIDs: rootIDs},
		RootHash:   rootHash,
	}
}

// asMap returns the snapshot's file hashes indexed by relative path.
func (s *Snapshot) asMap() map[string]string {
	if s == nil {
		return nil
	}
	m := make(map[string]string, len(s.FileHashes))
	for _, fh := range s.FileHashes {
		m[fh.RelativePath] = fh.Hash
	}
	return m
}

// Diff describes the result of comparing a previous snapshot P against a
// current snapshot C. All four sets are pairwise disjoint, lexicographically
// ordered, and satisfy the documented soundness identities.
type Diff struct {
	Added     []string
	Removed   []string
	Modified  []string
	Unchanged []string
}

// ComputeDiff diffs previous against current. A nil previous snapshot (no
// prior run) treats every file in current as added.
func ComputeDiff(previous, current *Snapshot) Diff {
	prevFiles := previous.asMap()
	curFiles := current.asMap()

	var added, removed, modified, unchanged []string

	for p, curHash := range curFiles {
		prevHash, existed := prevFiles[p]
		switch {
		case !existed:
			added = append(added, p)
		case prevHash != curHash:
			modified = append(modified, p)
		default:
			unchanged = append(unchanged, p)
		}
	}
	for p := range prevFiles {
		if _, stillExists := curFiles[p]; !stillExists {
			removed = append(removed, p)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(modified)
	sort.Strings(unchanged)

	return Diff{Added: added, Removed: removed, Modified: modified, Unchanged: unchanged}
}
