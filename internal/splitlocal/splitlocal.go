// Package splitlocal implements the adapters.CodeSplitter contract:
// AST-aware chunking for the languages internal/chunk's tree-sitter
// registry covers (Go/JavaScript/JSX/TypeScript/TSX/Python via
// smacker/go-tree-sitter grammars), selecting top-level declaration
// nodes (function/method/class/type/const/var) as natural chunk
// boundaries, and a deterministic line-based fallback for languages
// the registry does not cover (Rust, Java, C, C++). Invariants:
// overlap < size, size >= 1, deterministic ordering.
package splitlocal

import (
	"strings"

	"github.com/Luiz-Frias/semantic-code-agx/internal/adapters"
	"github.com/Luiz-Frias/semantic-code-agx/internal/chunk"
	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
)

// Splitter is the local, in-process adapters.CodeSplitter.
type Splitter struct {
	registry *chunk.LanguageRegistry
}

// New constructs a Splitter backed by the default language registry.
func New() *Splitter {
	return &Splitter{registry: chunk.DefaultRegistry()}
}

// Split implements adapters.CodeSplitter. overlapLines must be strictly
// less than chunkSizeLines and chunkSizeLines must be >= 1; violations
// are reported as a SplitterInvalidInput envelope rather than silently
// clamped, since the caller's configuration is in error.
func (s *Splitter) Split(rc *rctx.RequestContext, content, languageHint string, chunkSizeLines, overlapLines int) ([]adapters.SplitChunk, *errs.Envelope) {
	if chunkSizeLines < 1 {
		return nil, errs.Invalid(errs.CodeSplitterInvalidInput, "chunkSizeLines must be >= 1")
	}
	if overlapLines < 0 || overlapLines >= chunkSizeLines {
		return nil, errs.Invalid(errs.CodeSplitterInvalidInput, "overlapLines must be >= 0 and < chunkSizeLines")
	}
	if rc.Cancelled() {
		return nil, errs.Cancelled()
	}
	if strings.TrimSpace(content) == "" {
		return []adapters.SplitChunk{}, nil
	}

	if _, ok := s.registry.GetByName(languageHint); ok {
		chunks, err := s.astSplit(rc, content, languageHint, chunkSizeLines, overlapLines)
		if err == nil {
			return chunks, nil
		}
		// Fall through to the line-based fallback on any parse failure —
		// a malformed or partial file must still produce chunks.
	}
	return lineSplit(content, chunkSizeLines, overlapLines), nil
}

// astSplit groups the source's top-level declarations into chunks
// bounded by chunkSizeLines, splitting any single declaration that alone
// exceeds chunkSizeLines via the line-based fallback.
func (s *Splitter) astSplit(rc *rctx.RequestContext, content, language string, chunkSizeLines, overlapLines int) ([]adapters.SplitChunk, error) {
	// A fresh parser per call, not a shared/cached one: the chunk stage
	// runs Split concurrently across a worker pool against one Splitter,
	// and tree-sitter parsers are not safe for concurrent use.
	parser := chunk.NewParserWithRegistry(s.registry)
	defer parser.Close()

	tree, err := parser.Parse(rc.Context(), []byte(content), language)
	if err != nil {
		return nil, err
	}

	cfg, _ := s.registry.GetByName(language)
	declTypes := declarationTypes(cfg)

	lines := splitLines(content)
	var spans []lineSpan
	for _, child := range tree.Root.Children {
		if !declTypes[child.Type] {
			continue
		}
		start := int(child.StartPoint.Row) + 1
		end := int(child.EndPoint.Row) + 1
		spans = append(spans, lineSpan{start: start, end: end})
	}
	if len(spans) == 0 {
		return lineSplit(content, chunkSizeLines, overlapLines), nil
	}

	var chunks []adapters.SplitChunk
	groupStart, groupEnd := spans[0].start, spans[0].end
	flush := func() {
		if groupEnd-groupStart+1 > chunkSizeLines {
			for _, c := range lineSplit(joinLines(lines, groupStart, groupEnd), chunkSizeLines, overlapLines) {
				c.StartLine += groupStart - 1
				c.EndLine += groupStart - 1
				chunks = append(chunks, c)
			}
			return
		}
		chunks = append(chunks, adapters.SplitChunk{
			StartLine: groupStart,
			EndLine:   groupEnd,
			Content:   joinLines(lines, groupStart, groupEnd),
		})
	}

	for _, sp := range spans[1:] {
		if sp.end-groupStart+1 <= chunkSizeLines {
			groupEnd = sp.end
			continue
		}
		flush()
		groupStart, groupEnd = sp.start, sp.end
	}
	flush()

	return applyOverlap(chunks, lines, overlapLines), nil
}

type lineSpan struct{ start, end int }

func declarationTypes(cfg *chunk.LanguageConfig) map[string]bool {
	set := map[string]bool{}
	if cfg == nil {
		return set
	}
	for _, group := range [][]string{cfg.FunctionTypes, cfg.MethodTypes, cfg.ClassTypes, cfg.TypeDefTypes, cfg.InterfaceTypes, cfg.ConstantTypes, cfg.VariableTypes} {
		for _, t := range group {
			set[t] = true
		}
	}
	return set
}

// lineSplit is the deterministic fallback: a sliding window of
// chunkSizeLines with overlapLines of repeated context between
// consecutive chunks, ordered by ascending start line.
func lineSplit(content string, chunkSizeLines, overlapLines int) []adapters.SplitChunk {
	lines := splitLines(content)
	if len(lines) == 0 {
		return []adapters.SplitChunk{}
	}
	step := chunkSizeLines - overlapLines
	if step < 1 {
		step = 1
	}

	var chunks []adapters.SplitChunk
	for start := 1; start <= len(lines); start += step {
		end := start + chunkSizeLines - 1
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, adapters.SplitChunk{
			StartLine: start,
			EndLine:   end,
			Content:   joinLines(lines, start, end),
		})
		if end == len(lines) {
			break
		}
	}
	return chunks
}

// applyOverlap extends each AST-derived chunk's start backward by
// overlapLines of preceding context, without altering chunk ordering.
func applyOverlap(chunks []adapters.SplitChunk, lines []string, overlapLines int) []adapters.SplitChunk {
	if overlapLines <= 0 {
		return chunks
	}
	out := make([]adapters.SplitChunk, len(chunks))
	for i, c := range chunks {
		start := c.StartLine - overlapLines
		if start < 1 {
			start = 1
		}
		out[i] = adapters.SplitChunk{
			StartLine: start,
			EndLine:   c.EndLine,
			Content:   joinLines(lines, start, c.EndLine),
		}
	}
	return out
}

func splitLines(content string) []string {
	trimmed := strings.TrimSuffix(content, "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

// joinLines returns lines[start..end] (1-indexed, inclusive) rejoined
// with trailing newlines preserved.
func joinLines(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n") + "\n"
}
