// Package indexpipeline implements the scan→split→embed→upsert pipeline
// as a typestate state machine:
// Prepared→Scanned→Chunked→Embedded→Upserted→Completed, each stage a
// distinct value type whose only outward API is the legal transition.
// Reusing a consumed stage value is undefined, since Go has no move
// semantics to enforce it at compile time.
package indexpipeline

import (
	"github.com/Luiz-Frias/semantic-code-agx/internal/retry"
)

// Config carries every tunable the pipeline needs.
type Config struct {
	AllowedExtensions []string // empty means "no extension filter"
	MaxFiles          int
	MaxFileSizeBytes  int64

	MaxInFlightFiles  int
	MaxChunkChars     int
	MaxBufferedChunks int
	ChunkSizeLines    int
	OverlapLines      int

	EmbeddingBatchSize          int
	MaxInFlightEmbeddingBatches int

	VectorBatchSize    int
	MaxInFlightInserts int

	Retry retry.Policy

	Collection string
	Dimension  int
}

// DefaultConfig returns reasonable defaults consistent with the
// bounds tables.
func DefaultConfig() Config {
	return Config{
		MaxFiles:                    0,
		MaxFileSizeBytes:            5 * 1024 * 1024,
		MaxInFlightFiles:            8,
		MaxChunkChars:               20000,
		MaxBufferedChunks:           512,
		ChunkSizeLines:              200,
		OverlapLines:                20,
		EmbeddingBatchSize:          32,
		MaxInFlightEmbeddingBatches: 4,
		VectorBatchSize:             256,
		MaxInFlightInserts:          4,
		Retry:                       retry.DefaultPolicy(),
	}
}
