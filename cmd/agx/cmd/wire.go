package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Luiz-Frias/semantic-code-agx/internal/config"
	"github.com/Luiz-Frias/semantic-code-agx/internal/embedlocal"
	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/fslocal"
	"github.com/Luiz-Frias/semantic-code-agx/internal/ignore"
	"github.com/Luiz-Frias/semantic-code-agx/internal/indexpipeline"
	"github.com/Luiz-Frias/semantic-code-agx/internal/localstore"
	"github.com/Luiz-Frias/semantic-code-agx/internal/pathpolicy"
	"github.com/Luiz-Frias/semantic-code-agx/internal/retry"
	"github.com/Luiz-Frias/semantic-code-agx/internal/splitlocal"
	"github.com/Luiz-Frias/semantic-code-agx/internal/vector"
)

// stateDirName is the ".context" subtree holding all local state.
const stateDirName = pathpolicy.StateDirName

// defaultCollection is the single vector collection every codebase
// uses; the config has no setting that names another one.
const defaultCollection = "code"

// ignoreCacheSize bounds how many codebases' ignore matchers this
// process keeps compiled at once (background job re-exec and the watch
// loop both reopen the same workspace repeatedly).
const ignoreCacheSize = 64

var ignoreCache, _ = ignore.NewCache(ignoreCacheSize)

// workspace bundles one codebase root's resolved paths, configuration,
// and concrete local adapters, built once per command invocation.
type workspace struct {
	absRoot  string
	stateDir string
	cfg      *config.Config

	fs        *fslocal.Filesystem
	ignoreM   *ignore.Matcher
	splitter  *splitlocal.Splitter
	embedder  *embedlocal.Embedder
	store     *localstore.VectorStore
	syncStore *localstore.FileSyncStore
}

// openWorkspace resolves path to an absolute root, loads its
// configuration from "<root>/.context", and constructs the local
// adapters every command wires against. It does not require the
// ".context" directory to already exist (Load returns defaults for a
// fresh codebase); callers that need it present (index/search/reindex)
// check separately.
func openWorkspace(path string) (*workspace, *errs.Envelope) {
	absRoot, err := filepath.Abs(path)
	if err != nil {
		return nil, errs.Invalid(errs.CodeInvalidPath, "cannot resolve path: "+err.Error())
	}
	stateDir := filepath.Join(absRoot, stateDirName)

	cfg, env := config.Load(stateDir)
	if env != nil {
		return nil, env
	}

	ignoreMatcher, err := ignoreCache.GetOrBuild(absRoot, func() (*ignore.Matcher, error) {
		return ignore.New(cfg.Sync.IgnorePatterns, filepath.Join(absRoot, ".contextignore"))
	})
	if err != nil {
		return nil, errs.Invalid(errs.CodeInvalidValue, "cannot build ignore matcher: "+err.Error())
	}

	w := &workspace{
		absRoot:   absRoot,
		stateDir:  stateDir,
		cfg:       cfg,
		fs:        fslocal.New(absRoot),
		ignoreM:   ignoreMatcher,
		splitter:  splitlocal.New(),
		embedder:  embedlocal.New(cfg.Embedding.Dimension),
		store:     localstore.NewVectorStore(stateDir),
		syncStore: localstore.NewFileSyncStore(stateDir),
	}
	return w, nil
}

// collection returns the vector collection name this workspace indexes
// into. Single-collection-per-codebase for now; multi-collection
// routing has no driver in the CLI surface yet.
func (w *workspace) collection() string {
	return defaultCollection
}

// pipelineConfig translates the loaded configuration into
// indexpipeline.Config, the shape both internal/indexpipeline and
// internal/reindex consume.
func (w *workspace) pipelineConfig() indexpipeline.Config {
	c := w.cfg
	return indexpipeline.Config{
		AllowedExtensions:           c.Sync.AllowedExtensions,
		MaxFiles:                    c.Sync.MaxFiles,
		MaxFileSizeBytes:            c.Sync.MaxFileSizeBytes,
		MaxInFlightFiles:            c.Core.MaxInFlightFiles,
		MaxChunkChars:               c.Core.MaxChunkChars,
		MaxBufferedChunks:           c.Core.MaxBufferedChunks,
		ChunkSizeLines:              200,
		OverlapLines:                20,
		EmbeddingBatchSize:          c.Embedding.BatchSize,
		MaxInFlightEmbeddingBatches: c.Core.MaxInFlightEmbeddingBatches,
		VectorBatchSize:             c.VectorDB.BatchSize,
		MaxInFlightInserts:          c.Core.MaxInFlightInserts,
		Retry: retry.Policy{
			MaxAttempts:    c.Core.Retry.MaxAttempts,
			BaseDelayMs:    c.Core.Retry.BaseDelayMs,
			MaxDelayMs:     c.Core.Retry.MaxDelayMs,
			JitterRatioPct: c.Core.Retry.JitterRatioPct,
		},
		Collection: w.collection(),
		Dimension:  c.Embedding.Dimension,
	}
}

func stateDirExists(absRoot string) bool {
	info, err := os.Stat(filepath.Join(absRoot, stateDirName))
	return err == nil && info.IsDir()
}

func requireInitialized(absRoot string) *errs.Envelope {
	if !stateDirExists(absRoot) {
		return errs.Invalid(errs.CodeInvalidValue,
			fmt.Sprintf("no %s directory at %s; run \"agx init\" first", stateDirName, absRoot))
	}
	return nil
}

// vectorParams returns the HNSW construction parameters used for every
// collection this CLI creates.
func vectorParams() vector.Params {
	return vector.DefaultParams()
}
