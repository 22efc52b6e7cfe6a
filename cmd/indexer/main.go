package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/docsearch/documenter-mcp/internal/config"
	"github.com/docsearch/documenter-mcp/internal/indexing"
	"github.com/docsearch/documenter-mcp/internal/searchindex"
	"github.com/docsearch/documenter-mcp/internal/source"
)

func main() {
	if len(os.Args) < 3 || len(os.Args) > 5 {
		fmt.Fprintf(os.Stderr, "Usage: %s <search-index> <index-dir> [site-name] [base-url]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s tools/data/search_index.js search/index plotlylight https://juliacomputing.github.io/PlotlyLight.jl/dev/\n", os.Args[0])
		os.Exit(1)
	}

	ref, indexDir := os.Args[1], os.Args[2]
	site, baseURL := "docs", ""
	if len(os.Args) > 3 {
		site = os.Args[3]
	}
	if len(os.Args) > 4 {
		baseURL = os.Args[4]
	}

	logging := config.LoggingConfig{Level: "normal"}
	log, err := logging.Prepare()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to prepare logs: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(context.Background(), log, ref, indexDir, site, baseURL); err != nil {
		log.Error("Indexing failed", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, log *zap.Logger, ref, indexDir, site, baseURL string) error {
	start := time.Now()
	log.Info("Documenter search indexer", zap.Int("schema", indexing.IndexSchemaVersion), zap.String("source", ref))

	data, err := source.Fetch(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to read search index: %w", err)
	}
	idx, err := searchindex.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse search index: %w", err)
	}
	if err := idx.Check(); err != nil {
		log.Warn("Search index failed semantic checks", zap.Error(err))
	}

	chunks := indexing.BuildChunks(site, baseURL, idx)
	log.Info("Chunks built", zap.Int("fragments", len(idx.Docs)), zap.Int("chunks", len(chunks)),
		zap.Int("avg_tokens", indexing.AverageTokens(chunks)), zap.Int("oversized", indexing.CountOversized(chunks)))

	if err := indexing.WriteIndex(indexDir, chunks, log); err != nil {
		return err
	}
	if err := indexing.WriteVersion(filepath.Dir(indexDir)); err != nil {
		log.Warn("Failed to write version file", zap.Error(err))
	}

	log.Info("Indexing complete",
		zap.String("location", indexDir),
		zap.String("site", site),
		zap.Int("chunks", len(chunks)),
		zap.Int("schema", indexing.IndexSchemaVersion),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
	return nil
}
