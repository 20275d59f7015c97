// Package evaluate runs one retrieval model over a test set and scores
// every ranking against the judgments.
package evaluate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/metrics"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/testset"
	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
	pkgmetrics "github.com/Adithya-Monish-Kumar-K/npleval/pkg/metrics"
)

// Options control one evaluation pass. Depth is how many hits are requested
// from the ranker; metrics only look at the first Cut.
type Options struct {
	Cut   int
	Depth int
	Phase string
}

// QueryResult is the outcome for one topic.
type QueryResult struct {
	Topic testset.Topic
	Hits  []eval.Hit
	Row   metrics.Row
}

// Result is the outcome of a pass. Means holds the per-metric Mean of the
// rows, with Ordinal left at zero.
type Result struct {
	Model   eval.Model
	Cut     int
	Queries []QueryResult
	Means   metrics.Row
}

// Rows returns the metric rows in ordinal order.
func (r *Result) Rows() []metrics.Row {
	rows := make([]metrics.Row, len(r.Queries))
	for i, q := range r.Queries {
		rows[i] = q.Row
	}
	return rows
}

// Series returns the values of m in ordinal order.
func (r *Result) Series(m metrics.Metric) []float64 {
	return metrics.Column(r.Rows(), m)
}

type Evaluator struct {
	ranker  eval.Ranker
	metrics *pkgmetrics.Metrics
	logger  *slog.Logger
}

func New(ranker eval.Ranker, m *pkgmetrics.Metrics) *Evaluator {
	return &Evaluator{
		ranker:  ranker,
		metrics: m,
		logger:  slog.Default().With("component", "evaluator"),
	}
}

// Evaluate ranks every topic of ts with model, in ordinal order. The first
// ranking error aborts the pass.
func (e *Evaluator) Evaluate(ctx context.Context, model eval.Model, ts *testset.TestSet, opts Options) (*Result, error) {
	if opts.Cut <= 0 {
		return nil, apperrors.Usagef("cut must be positive, got %d", opts.Cut)
	}
	if opts.Depth <= 0 {
		opts.Depth = opts.Cut
	}
	res := &Result{
		Model:   model,
		Cut:     opts.Cut,
		Queries: make([]QueryResult, 0, ts.Len()),
	}
	for topic := range ts.All() {
		hits, err := e.rank(ctx, topic.Query.Text, model, opts)
		if err != nil {
			return nil, fmt.Errorf("ranking query %d with %s: %w", topic.Query.Ordinal, model, err)
		}
		row, err := metrics.Compute(topic.Query.Ordinal, opts.Cut, topic.Relevant, eval.DocIDs(hits))
		if err != nil {
			return nil, err
		}
		res.Queries = append(res.Queries, QueryResult{Topic: topic, Hits: hits, Row: row})
		if e.metrics != nil {
			e.metrics.QueriesEvaluated.WithLabelValues(opts.Phase).Inc()
		}
		e.logger.Debug("query evaluated",
			"phase", opts.Phase,
			"model", model.String(),
			"ordinal", topic.Query.Ordinal,
			"hits", len(hits),
			"precision", row.Precision,
			"average_precision", row.AveragePrecision,
		)
	}
	rows := res.Rows()
	res.Means = metrics.Row{
		Precision:        metrics.Mean(metrics.Column(rows, metrics.Precision)),
		Recall:           metrics.Mean(metrics.Column(rows, metrics.Recall)),
		ReciprocalRank:   metrics.Mean(metrics.Column(rows, metrics.ReciprocalRank)),
		AveragePrecision: metrics.Mean(metrics.Column(rows, metrics.AveragePrecision)),
	}
	return res, nil
}

func (e *Evaluator) rank(ctx context.Context, query string, model eval.Model, opts Options) ([]eval.Hit, error) {
	start := time.Now()
	hits, err := e.ranker.Rank(ctx, query, model, opts.Depth)
	if e.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		e.metrics.RankingsTotal.WithLabelValues(opts.Phase, status).Inc()
		e.metrics.RankingDuration.WithLabelValues(opts.Phase).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}
	if len(hits) > opts.Depth {
		hits = hits[:opts.Depth]
	}
	return hits, nil
}
