package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
	"github.com/Luiz-Frias/semantic-code-agx/internal/filter"
	"github.com/Luiz-Frias/semantic-code-agx/internal/rctx"
)

func newSearchCmd() *cobra.Command {
	var (
		path       string
		topK       int
		filterExpr string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Embed a query and return the nearest code chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSearch(ctx, path, args[0], topK, filterExpr)
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "Codebase root")
	cmd.Flags().IntVar(&topK, "top-k", 10, "Number of results to return")
	cmd.Flags().StringVar(&filterExpr, "filter", "", `Filter expression, e.g. relativePath == "src/main.go"`)
	return cmd
}

func runSearch(ctx context.Context, path, query string, topK int, filterExpr string) error {
	w, env := openWorkspace(path)
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}
	if env := requireInitialized(w.absRoot); env != nil {
		printEnvelope(stdout, env)
		return env
	}
	if topK <= 0 {
		env := errs.Invalid(errs.CodeInvalidValue, "top-k must be positive")
		printEnvelope(stdout, env)
		return env
	}

	rc := rctx.New(ctx)

	cfg := w.pipelineConfig()
	if env := w.store.CreateCollection(rc, cfg.Collection, cfg.Dimension, vectorParams()); env != nil {
		printEnvelope(stdout, env)
		return env
	}

	var expr *filter.Expr
	if filterExpr != "" {
		e, env := filter.Parse(filterExpr)
		if env != nil {
			printEnvelope(stdout, env)
			return env
		}
		expr = e
	}

	vectors, env := w.embedder.EmbedBatch(rc, []string{query})
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}

	hits, env := w.store.Search(rc, w.collection(), vectors[0], topK, expr)
	if env != nil {
		printEnvelope(stdout, env)
		return env
	}

	if stdout.Format() == "text" {
		if len(hits) == 0 {
			stdout.Status("🔍", "no matches")
		}
		for _, h := range hits {
			stdout.Statusf("📄", "%s:%d-%d (%.4f)", h.Document.RelativePath, h.Document.StartLine, h.Document.EndLine, h.Score)
		}
	}

	results := make([]map[string]any, len(hits))
	for i, h := range hits {
		results[i] = map[string]any{
			"id":            h.ID,
			"score":         h.Score,
			"relativePath":  h.Document.RelativePath,
			"startLine":     h.Document.StartLine,
			"endLine":       h.Document.EndLine,
			"language":      h.Document.Language,
			"fileExtension": h.Document.FileExtension,
			"content":       h.Document.Content,
		}
	}
	return stdout.Emit(map[string]any{"results": results})
}
