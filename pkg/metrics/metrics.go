// Package metrics defines the Prometheus collectors recorded during an
// evaluation run. Runs are short-lived batch jobs, so collectors live on a
// private registry that is written to a node-exporter textfile when the run
// ends instead of being scraped.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for one run.
type Metrics struct {
	registry *prometheus.Registry

	RankingsTotal      *prometheus.CounterVec
	RankingDuration    *prometheus.HistogramVec
	RankingCacheTotal  *prometheus.CounterVec
	QueriesEvaluated   *prometheus.CounterVec
	CandidateMean      *prometheus.GaugeVec
	SelectedParameter  *prometheus.GaugeVec
	TestMean           *prometheus.GaugeVec
	DocsIndexedTotal   prometheus.Counter
	IndexFlushesTotal  *prometheus.CounterVec
	RunDurationSeconds *prometheus.GaugeVec
}

// New creates all collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RankingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "npleval_rankings_total",
				Help: "Rankings requested from the retrieval engine by phase and outcome.",
			},
			[]string{"phase", "status"},
		),
		RankingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "npleval_ranking_duration_seconds",
				Help:    "Latency of a single ranking call in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"phase"},
		),
		RankingCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "npleval_ranking_cache_total",
				Help: "Ranking cache lookups by result (hit, miss).",
			},
			[]string{"result"},
		),
		QueriesEvaluated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "npleval_queries_evaluated_total",
				Help: "Queries scored against their relevance judgments by phase.",
			},
			[]string{"phase"},
		),
		CandidateMean: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "npleval_candidate_mean",
				Help: "Mean training metric per swept candidate.",
			},
			[]string{"family", "metric", "candidate"},
		),
		SelectedParameter: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "npleval_selected_parameter",
				Help: "Parameter value chosen on the training range.",
			},
			[]string{"family", "metric"},
		),
		TestMean: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "npleval_test_mean",
				Help: "Mean metric of the selected candidate on the test range.",
			},
			[]string{"family", "metric"},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "npleval_docs_indexed_total",
				Help: "Total documents indexed.",
			},
		),
		IndexFlushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "npleval_index_flushes_total",
				Help: "Total index flush operations by status.",
			},
			[]string{"status"},
		),
		RunDurationSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "npleval_run_duration_seconds",
				Help: "Wall-clock duration of the last run by command.",
			},
			[]string{"command"},
		),
	}

	m.registry.MustRegister(
		m.RankingsTotal,
		m.RankingDuration,
		m.RankingCacheTotal,
		m.QueriesEvaluated,
		m.CandidateMean,
		m.SelectedParameter,
		m.TestMean,
		m.DocsIndexedTotal,
		m.IndexFlushesTotal,
		m.RunDurationSeconds,
	)

	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile dumps every collector in the Prometheus text format. The
// file is written atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}
	return nil
}

// FormatCandidate renders a candidate value as a label.
func FormatCandidate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
