// Command npl-index builds the inverted index of an NPL document
// collection.
//
//	npl-index --docs doc-text --index index --analyzer english
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/cli"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer/collection"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
)

type indexFlags struct {
	docs      string
	index     string
	analyzer  string
	stopwords string
	openMode  string
}

func main() {
	os.Exit(cli.Execute(newRootCmd()))
}

func newRootCmd() *cobra.Command {
	var (
		opts  cli.Options
		flags indexFlags
	)
	cmd := &cobra.Command{
		Use:   "npl-index --docs PATH",
		Short: "Index an NPL document collection",
		Long: `Reads the documents of an NPL collection (identifier line, content lines,
"/" terminator) and writes an inverted index. The analyzer is recorded in
the index manifest so that searches analyze queries the same way.

Analyzers: standard, simple, whitespace, keyword, stop, english`,
		Args: cli.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd, &opts, flags)
		},
	}
	opts.Bind(cmd)
	cmd.Flags().StringVar(&flags.docs, "docs", "", "NPL document collection (required)")
	cmd.Flags().StringVar(&flags.index, "index", "", "Index directory (default from config)")
	cmd.Flags().StringVar(&flags.analyzer, "analyzer", "", "Analyzer name (default from config)")
	cmd.Flags().StringVar(&flags.stopwords, "stopwords", "", "Stopword file for the stop analyzer")
	cmd.Flags().StringVar(&flags.openMode, "openmode", string(indexer.ModeCreateOrAppend), "create, append or create_or_append")
	return cmd
}

func runIndex(cmd *cobra.Command, opts *cli.Options, flags indexFlags) error {
	if flags.docs == "" {
		return apperrors.Usagef("--docs is required")
	}
	mode, err := indexer.ParseOpenMode(flags.openMode)
	if err != nil {
		return err
	}
	cfg, err := opts.Load()
	if err != nil {
		return err
	}
	if flags.index != "" {
		cfg.Index.DataDir = flags.index
	}
	if flags.analyzer != "" {
		cfg.Index.Analyzer = flags.analyzer
	}
	if flags.stopwords != "" {
		cfg.Index.StopwordsPath = flags.stopwords
	}
	analyzer, err := tokenizer.New(cfg.Index.Analyzer, cfg.Index.StopwordsPath)
	if err != nil {
		return apperrors.Usagef("%v", err)
	}

	rt := cli.NewRuntime("npl-index", cfg)
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Error("closing runtime", "error", err)
		}
	}()

	f, err := os.Open(flags.docs)
	if err != nil {
		return apperrors.Usagef("opening document collection: %v", err)
	}
	defer f.Close()

	engine, err := indexer.Create(cfg.Index, mode, analyzer, indexer.WithMetrics(rt.Metrics))
	if err != nil {
		return err
	}
	start := time.Now()
	count := 0
	for doc, err := range collection.Documents(f) {
		if err != nil {
			engine.Close()
			return fmt.Errorf("%s: %w", flags.docs, err)
		}
		if err := cmd.Context().Err(); err != nil {
			engine.Close()
			return err
		}
		if err := engine.IndexDocument(doc.ID, doc.Text); err != nil {
			engine.Close()
			return fmt.Errorf("indexing document %s: %w", doc.ID, err)
		}
		count++
	}
	if err := engine.Close(); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}

	if err := rt.InvalidateRankings(cmd.Context(), engine.Manifest().ID); err != nil {
		slog.Warn("ranking cache not invalidated", "error", err)
	}

	stats := engine.Stats()
	slog.Info("indexing complete",
		"dir", cfg.Index.DataDir,
		"analyzer", analyzer.Name(),
		"mode", string(mode),
		"indexed", count,
		"docs", stats.Docs,
		"tokens", stats.Tokens,
		"duration", time.Since(start),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents into %s (%d documents, %d tokens)\n",
		count, cfg.Index.DataDir, stats.Docs, stats.Tokens)
	return nil
}
