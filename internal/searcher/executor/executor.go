// Package executor answers ranking requests against an index. Executor is
// the in-process implementation of eval.Ranker.
package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/searcher/ranker"
)

// Index is the read side of an index that the executor needs.
type Index interface {
	Search(term string) (index.PostingList, error)
	DocLength(docID string) int
	Stats() indexer.Stats
	Analyzer() *tokenizer.Analyzer
}

type Executor struct {
	index  Index
	logger *slog.Logger
}

func New(idx Index) *Executor {
	return &Executor{
		index:  idx,
		logger: slog.Default().With("component", "query-executor"),
	}
}

// Rank parses query with the index analyzer and returns at most depth hits
// scored with model's similarity.
func (e *Executor) Rank(ctx context.Context, query string, model eval.Model, depth int) ([]eval.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if depth <= 0 {
		return nil, fmt.Errorf("ranking depth must be positive, got %d", depth)
	}
	sim, err := ranker.ForModel(model)
	if err != nil {
		return nil, err
	}
	plan, err := parser.Parse(query, e.index.Analyzer())
	if err != nil {
		return nil, err
	}

	postingsPerTerm := make(map[string]index.PostingList)
	for _, term := range plan.Unique() {
		postings, err := e.index.Search(term)
		if err != nil {
			return nil, fmt.Errorf("searching term %q: %w", term, err)
		}
		if len(postings) > 0 {
			postingsPerTerm[term] = postings
		}
	}
	stats := e.index.Stats()
	params := ranker.RankParams{
		TotalDocs:    int64(stats.Docs),
		TotalTokens:  stats.Tokens,
		AvgDocLength: stats.AvgDocLength,
	}
	getDocInfo := func(docID string) ranker.DocInfo {
		return ranker.DocInfo{
			DocLength: e.index.DocLength(docID),
		}
	}
	ranked := ranker.Rank(plan.Terms, postingsPerTerm, params, sim, getDocInfo, depth)
	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"similarity", sim.Name(),
		"terms", plan.Terms,
		"results", len(ranked),
	)
	hits := make([]eval.Hit, len(ranked))
	for i, r := range ranked {
		hits[i] = eval.Hit{DocID: r.DocID, Score: r.Score}
	}
	return hits, nil
}
