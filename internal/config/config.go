// Package config implements the layered configuration system of
// built-in defaults, then TOML, JSON, or YAML on disk, overridden by
// environment variables, validated against a fixed bounds table.
// Command-line flags are not a configuration layer: no flag overrides
// a config value.
//
// Config is a single struct decoded from a file (TOML via
// github.com/BurntSushi/toml is the primary codec, with JSON and YAML
// also accepted for compatibility), followed by an explicit
// env-override pass, and a Validate method that returns the first
// bounds violation it finds.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
)

// RetryConfig mirrors internal/retry.Policy's tunables.
type RetryConfig struct {
	MaxAttempts    int `toml:"maxAttempts" json:"maxAttempts" yaml:"maxAttempts"`
	BaseDelayMs    int `toml:"baseDelayMs" json:"baseDelayMs" yaml:"baseDelayMs"`
	MaxDelayMs     int `toml:"maxDelayMs" json:"maxDelayMs" yaml:"maxDelayMs"`
	JitterRatioPct int `toml:"jitterRatioPct" json:"jitterRatioPct" yaml:"jitterRatioPct"`
}

// CoreConfig holds pipeline-wide concurrency and buffering bounds.
type CoreConfig struct {
	TimeoutMs                   int         `toml:"timeoutMs" json:"timeoutMs" yaml:"timeoutMs"`
	MaxConcurrency               int         `toml:"maxConcurrency" json:"maxConcurrency" yaml:"maxConcurrency"`
	MaxInFlightFiles             int         `toml:"maxInFlightFiles" json:"maxInFlightFiles" yaml:"maxInFlightFiles"`
	MaxInFlightEmbeddingBatches  int         `toml:"maxInFlightEmbeddingBatches" json:"maxInFlightEmbeddingBatches" yaml:"maxInFlightEmbeddingBatches"`
	MaxInFlightInserts           int         `toml:"maxInFlightInserts" json:"maxInFlightInserts" yaml:"maxInFlightInserts"`
	MaxBufferedChunks            int         `toml:"maxBufferedChunks" json:"maxBufferedChunks" yaml:"maxBufferedChunks"`
	MaxBufferedEmbeddings        int         `toml:"maxBufferedEmbeddings" json:"maxBufferedEmbeddings" yaml:"maxBufferedEmbeddings"`
	MaxChunkChars                int         `toml:"maxChunkChars" json:"maxChunkChars" yaml:"maxChunkChars"`
	Retry                        RetryConfig `toml:"retry" json:"retry" yaml:"retry"`
}

// RoutingConfig selects how the embedding adapter chooses between local
// and remote providers.
type RoutingConfig struct {
	Mode string `toml:"mode" json:"mode" yaml:"mode"`
}

// EmbeddingConfig configures the embedder adapter.
type EmbeddingConfig struct {
	Provider   string        `toml:"provider" json:"provider" yaml:"provider"`
	Model      string        `toml:"model" json:"model" yaml:"model"`
	BaseURL    string        `toml:"baseUrl" json:"baseUrl" yaml:"baseUrl"`
	Dimension  int           `toml:"dimension" json:"dimension" yaml:"dimension"`
	BatchSize  int           `toml:"batchSize" json:"batchSize" yaml:"batchSize"`
	TimeoutMs  int           `toml:"timeoutMs" json:"timeoutMs" yaml:"timeoutMs"`
	LocalFirst bool          `toml:"localFirst" json:"localFirst" yaml:"localFirst"`
	LocalOnly  bool          `toml:"localOnly" json:"localOnly" yaml:"localOnly"`
	Routing    RoutingConfig `toml:"routing" json:"routing" yaml:"routing"`
}

// VectorDBConfig configures the vector-store adapter.
type VectorDBConfig struct {
	Provider        string `toml:"provider" json:"provider" yaml:"provider"`
	IndexMode       string `toml:"indexMode" json:"indexMode" yaml:"indexMode"`
	BatchSize       int    `toml:"batchSize" json:"batchSize" yaml:"batchSize"`
	TimeoutMs       int    `toml:"timeoutMs" json:"timeoutMs" yaml:"timeoutMs"`
	SnapshotStorage string `toml:"snapshotStorage" json:"snapshotStorage" yaml:"snapshotStorage"`
}

// SyncConfig configures the scanning/ignore stage.
type SyncConfig struct {
	AllowedExtensions []string `toml:"allowedExtensions" json:"allowedExtensions" yaml:"allowedExtensions"`
	IgnorePatterns    []string `toml:"ignorePatterns" json:"ignorePatterns" yaml:"ignorePatterns"`
	MaxFiles          int      `toml:"maxFiles" json:"maxFiles" yaml:"maxFiles"`
	MaxFileSizeBytes  int64    `toml:"maxFileSizeBytes" json:"maxFileSizeBytes" yaml:"maxFileSizeBytes"`
}

// Config is the full, validated configuration tree.
type Config struct {
	Version   int             `toml:"version" json:"version" yaml:"version"`
	Core      CoreConfig      `toml:"core" json:"core" yaml:"core"`
	Embedding EmbeddingConfig `toml:"embedding" json:"embedding" yaml:"embedding"`
	VectorDB  VectorDBConfig  `toml:"vectorDb" json:"vectorDb" yaml:"vectorDb"`
	Sync      SyncConfig      `toml:"sync" json:"sync" yaml:"sync"`
}

// Default returns the configuration used when no file, env, or CLI
// override applies.
func Default() *Config {
	return &Config{
		Version: 1,
		Core: CoreConfig{
			TimeoutMs:                   30_000,
			MaxConcurrency:              8,
			MaxInFlightFiles:            8,
			MaxInFlightEmbeddingBatches: 4,
			MaxInFlightInserts:          4,
			MaxBufferedChunks:           1_000,
			MaxBufferedEmbeddings:       1_000,
			MaxChunkChars:               4_000,
			Retry: RetryConfig{
				MaxAttempts:    3,
				BaseDelayMs:    200,
				MaxDelayMs:     5_000,
				JitterRatioPct: 20,
			},
		},
		Embedding: EmbeddingConfig{
			Provider:  "local",
			Dimension: 256,
			BatchSize: 32,
			TimeoutMs: 30_000,
			Routing:   RoutingConfig{Mode: "localFirst"},
		},
		VectorDB: VectorDBConfig{
			Provider:        "local",
			IndexMode:       "dense",
			BatchSize:       128,
			TimeoutMs:       30_000,
			SnapshotStorage: "project",
		},
		Sync: SyncConfig{
			MaxFiles:         1_000_000,
			MaxFileSizeBytes: 5_000_000,
		},
	}
}

// Load reads dir/config.toml (preferred), dir/config.json, or
// dir/config.yaml (also accepted for
// compatibility), merged onto Default(), then applies environment
// variable overrides, then validates. A missing file is not an error:
// Load returns defaults with env overrides applied.
func Load(dir string) (*Config, *errs.Envelope) {
	cfg := Default()

	tomlPath := filepath.Join(dir, "config.toml")
	jsonPath := filepath.Join(dir, "config.json")
	yamlPath := filepath.Join(dir, "config.yaml")
	if !fileExists(yamlPath) {
		yamlPath = filepath.Join(dir, "config.yml")
	}

	switch {
	case fileExists(tomlPath):
		if env := loadTOML(tomlPath, cfg); env != nil {
			return nil, env
		}
	case fileExists(jsonPath):
		if env := loadJSON(jsonPath, cfg); env != nil {
			return nil, env
		}
	case fileExists(yamlPath):
		if env := loadYAML(yamlPath, cfg); env != nil {
			return nil, env
		}
	}

	if env := applyEnv(cfg); env != nil {
		return nil, env
	}
	if env := cfg.Validate(); env != nil {
		return nil, env
	}
	return cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func loadTOML(path string, cfg *Config) *errs.Envelope {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(errs.CodeInvalidPath, "read config.toml", err, false)
	}
	data = []byte(expandEnvVars(string(data)))
	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return errs.Invalid(errs.CodeInvalidValue, "parse config.toml: "+err.Error())
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return errs.Invalid(errs.CodeInvalidValue, "unknown config field: "+undecoded[0].String())
	}
	return nil
}

func loadYAML(path string, cfg *Config) *errs.Envelope {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(errs.CodeInvalidPath, "read config.yaml", err, false)
	}
	data = []byte(expandEnvVars(string(data)))
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return errs.Invalid(errs.CodeInvalidValue, "parse config.yaml: "+err.Error())
	}
	return nil
}

func loadJSON(path string, cfg *Config) *errs.Envelope {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(errs.CodeInvalidPath, "read config.json", err, false)
	}
	data = []byte(expandEnvVars(string(data)))
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return errs.Invalid(errs.CodeInvalidValue, "parse config.json: "+err.Error())
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} occurrences in the raw file text with
// the variable's value. Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

// applyEnv overrides cfg fields from SCA_<SECTION>_<FIELD> environment
// variables. Booleans accept true|false|1|0; CSV lists
// are trimmed, normalized, sorted, and deduplicated.
func applyEnv(cfg *Config) *errs.Envelope {
	if v, ok := lookupEnv("SCA_CORE_TIMEOUTMS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errs.Invalid(errs.CodeInvalidValue, "SCA_CORE_TIMEOUTMS must be an integer")
		}
		cfg.Core.TimeoutMs = n
	}
	if v, ok := lookupEnv("SCA_CORE_MAXCONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errs.Invalid(errs.CodeInvalidValue, "SCA_CORE_MAXCONCURRENCY must be an integer")
		}
		cfg.Core.MaxConcurrency = n
	}
	if v, ok := lookupEnv("SCA_EMBEDDING_PROVIDER"); ok {
		cfg.Embedding.Provider = v
	}
	if v, ok := lookupEnv("SCA_EMBEDDING_MODEL"); ok {
		cfg.Embedding.Model = v
	}
	if v, ok := lookupEnv("SCA_EMBEDDING_BASEURL"); ok {
		cfg.Embedding.BaseURL = v
	}
	if v, ok := lookupEnv("SCA_EMBEDDING_DIMENSION"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errs.Invalid(errs.CodeInvalidValue, "SCA_EMBEDDING_DIMENSION must be an integer")
		}
		cfg.Embedding.Dimension = n
	}
	if v, ok := lookupEnv("SCA_EMBEDDING_LOCALFIRST"); ok {
		b, err := parseBool(v)
		if err != nil {
			return errs.Invalid(errs.CodeInvalidValue, "SCA_EMBEDDING_LOCALFIRST must be true|false|1|0")
		}
		cfg.Embedding.LocalFirst = b
	}
	if v, ok := lookupEnv("SCA_EMBEDDING_LOCALONLY"); ok {
		b, err := parseBool(v)
		if err != nil {
			return errs.Invalid(errs.CodeInvalidValue, "SCA_EMBEDDING_LOCALONLY must be true|false|1|0")
		}
		cfg.Embedding.LocalOnly = b
	}
	if v, ok := lookupEnv("SCA_VECTORDB_PROVIDER"); ok {
		cfg.VectorDB.Provider = v
	}
	if v, ok := lookupEnv("SCA_VECTORDB_INDEXMODE"); ok {
		cfg.VectorDB.IndexMode = v
	}
	if v, ok := lookupEnv("SCA_SYNC_ALLOWEDEXTENSIONS"); ok {
		cfg.Sync.AllowedExtensions = normalizeCSV(v)
	}
	if v, ok := lookupEnv("SCA_SYNC_IGNOREPATTERNS"); ok {
		cfg.Sync.IgnorePatterns = normalizeCSV(v)
	}
	if v, ok := lookupEnv("SCA_SYNC_MAXFILES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errs.Invalid(errs.CodeInvalidValue, "SCA_SYNC_MAXFILES must be an integer")
		}
		cfg.Sync.MaxFiles = n
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, strconv.ErrSyntax
}

func normalizeCSV(v string) []string {
	parts := strings.Split(v, ",")
	seen := map[string]bool{}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

var extensionPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Validate checks every configured bound, returning the
// first violation found.
func (c *Config) Validate() *errs.Envelope {
	if c.Version != 1 {
		return errs.Invalid(errs.CodeInvalidValue, "version must be 1")
	}
	if err := boundsInt("core.timeoutMs", c.Core.TimeoutMs, 1_000, 600_000); err != nil {
		return err
	}
	if err := boundsInt("core.maxConcurrency", c.Core.MaxConcurrency, 1, 256); err != nil {
		return err
	}
	if err := boundsInt("core.maxInFlightFiles", c.Core.MaxInFlightFiles, 1, 256); err != nil {
		return err
	}
	if err := boundsInt("core.maxInFlightEmbeddingBatches", c.Core.MaxInFlightEmbeddingBatches, 1, 256); err != nil {
		return err
	}
	if err := boundsInt("core.maxInFlightInserts", c.Core.MaxInFlightInserts, 1, 256); err != nil {
		return err
	}
	if err := boundsInt("core.maxBufferedChunks", c.Core.MaxBufferedChunks, 1, 1_000_000); err != nil {
		return err
	}
	if err := boundsInt("core.maxBufferedEmbeddings", c.Core.MaxBufferedEmbeddings, 1, 1_000_000); err != nil {
		return err
	}
	if err := boundsInt("core.maxChunkChars", c.Core.MaxChunkChars, 1, 20_000); err != nil {
		return err
	}
	if err := boundsInt("core.retry.maxAttempts", c.Core.Retry.MaxAttempts, 1, 10); err != nil {
		return err
	}
	if err := boundsInt("core.retry.baseDelayMs", c.Core.Retry.BaseDelayMs, 1, 60_000); err != nil {
		return err
	}
	if err := boundsInt("core.retry.maxDelayMs", c.Core.Retry.MaxDelayMs, 1, 600_000); err != nil {
		return err
	}
	if err := boundsInt("core.retry.jitterRatioPct", c.Core.Retry.JitterRatioPct, 0, 100); err != nil {
		return err
	}
	if err := boundsInt("embedding.dimension", c.Embedding.Dimension, 1, 65_536); err != nil {
		return err
	}
	if err := boundsInt("embedding.batchSize", c.Embedding.BatchSize, 1, 8_192); err != nil {
		return err
	}
	if err := boundsInt("embedding.timeoutMs", c.Embedding.TimeoutMs, 1_000, 1_200_000); err != nil {
		return err
	}
	switch c.Embedding.Routing.Mode {
	case "", "localFirst", "remoteFirst", "split":
	default:
		return errs.Invalid(errs.CodeInvalidValue, "embedding.routing.mode must be one of localFirst, remoteFirst, split")
	}
	switch c.VectorDB.IndexMode {
	case "", "dense", "hybrid":
	default:
		return errs.Invalid(errs.CodeInvalidValue, "vectorDb.indexMode must be dense or hybrid")
	}
	if err := boundsInt("vectorDb.batchSize", c.VectorDB.BatchSize, 1, 16_384); err != nil {
		return err
	}
	if err := boundsInt("vectorDb.timeoutMs", c.VectorDB.TimeoutMs, 1_000, 1_200_000); err != nil {
		return err
	}
	if c.VectorDB.SnapshotStorage != "disabled" && c.VectorDB.SnapshotStorage != "project" {
		if !filepath.IsAbs(c.VectorDB.SnapshotStorage) {
			return errs.Invalid(errs.CodeInvalidValue, "vectorDb.snapshotStorage must be disabled, project, or an absolute path")
		}
	}
	if len(c.Sync.AllowedExtensions) > 128 {
		return errs.Invalid(errs.CodeInvalidValue, "sync.allowedExtensions must have at most 128 entries")
	}
	for _, ext := range c.Sync.AllowedExtensions {
		if !extensionPattern.MatchString(ext) {
			return errs.Invalid(errs.CodeInvalidValue, "sync.allowedExtensions entries must match [A-Za-z0-9]+: "+ext)
		}
	}
	if len(c.Sync.IgnorePatterns) > 512 {
		return errs.Invalid(errs.CodeInvalidValue, "sync.ignorePatterns must have at most 512 entries")
	}
	if err := boundsInt("sync.maxFiles", c.Sync.MaxFiles, 1, 10_000_000); err != nil {
		return err
	}
	if err := boundsInt64("sync.maxFileSizeBytes", c.Sync.MaxFileSizeBytes, 1, 100_000_000); err != nil {
		return err
	}
	return nil
}

func boundsInt(field string, v, min, max int) *errs.Envelope {
	if v < min || v > max {
		return errs.Invalid(errs.CodeInvalidValue, field+" must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
	}
	return nil
}

func boundsInt64(field string, v, min, max int64) *errs.Envelope {
	if v < min || v > max {
		return errs.Invalid(errs.CodeInvalidValue, field+" must be between "+strconv.FormatInt(min, 10)+" and "+strconv.FormatInt(max, 10))
	}
	return nil
}
