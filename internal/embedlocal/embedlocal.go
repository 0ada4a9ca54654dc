// Package embedlocal implements a local, network-free Embedder adapter
// using hash-based token and n-gram features: code-aware tokenization
// (camelCase/snake_case splitting, programming stop-word filtering),
// n-gram extraction, and an FNV-64 hash-to-index scheme, onto a
// configurable fixed dimension (1..=65_536).
package embedlocal

import (
	"hash/fnv"
	"regexp"
	"strings"
	"unicode"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
)

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3

	// DefaultDimension is the default fixed vector width.
	DefaultDimension = 256
)

var programmingStopWords = map[string]bool{
	"func": true, "function": true, "def": true, "class": true,
	"return": true, "import": true, "const": true, "var": true,
	"let": true, "int": true, "string": true, "bool": true,
	"void": true, "true": true, "false": true, "nil": true,
	"null": true, "this": true, "self": true, "new": true,
}

var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// Embedder is a deterministic, offline adapters.Embedder.
type Embedder struct {
	dimension int
}

// New constructs an Embedder with the given fixed dimension. A
// dimension of 0 uses DefaultDimension.
func New(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dimension: dimension}
}

// Dimension returns the embedder's fixed vector width.
func (e *Embedder) Dimension() int { return e.dimension }

// DetectDimension reports the same fixed width; a local embedder never
// needs a remote probe to learn it.
func (e *Embedder) DetectDimension(rc *rctx.RequestContext) (int, *errs.Envelope) {
	return e.dimension, nil
}

// EmbedBatch embeds each text independently and deterministically.
func (e *Embedder) EmbedBatch(rc *rctx.RequestContext, texts []string) ([][]float32, *errs.Envelope) {
	if rc.Cancelled() {
		return nil, errs.Cancelled()
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *Embedder) embed(text string) []float32 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, e.dimension)
	}
	vec := make([]float32, e.dimension)

	for _, token := range filterStopWords(tokenize(trimmed)) {
		vec[hashToIndex(token, e.dimension)] += tokenWeight
	}
	for _, ngram := range extractNgrams(normalizeForNgrams(trimmed), ngramSize) {
		vec[hashToIndex(ngram, e.dimension)] += ngramWeight
	}
	return vec
}

func tokenize(text string) []string {
	var tokens []string
	for _, word := range tokenRegex.FindAllString(text, -1) {
		for _, t := range splitCodeToken(word) {
			if lower := strings.ToLower(t); lower != "" {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

func splitCodeToken(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, splitCamelCase(part)...)
			}
		}
		return result
	}
	return splitCamelCase(token)
}

func splitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	var current strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

func filterStopWords(tokens []string) []string {
	var filtered []string
	for _, t := range tokens {
		if !programmingStopWords[t] {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

func normalizeForNgrams(text string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return []string{}
	}
	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}
