// Command npl-search ranks the NPL queries with one similarity and scores
// every ranking against the relevance judgments.
//
//	npl-search --index index --jm 0.5 --cut 10 --top 100 --queries 1-20
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/cli"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/evaluate"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/metrics"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/report"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/sweep"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/testset"
	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
)

type searchFlags struct {
	index    string
	analyzer string
	jm       float64
	dir      float64
	cut      int
	top      int
	queries  string
}

func main() {
	os.Exit(cli.Execute(newRootCmd()))
}

func newRootCmd() *cobra.Command {
	var (
		opts  cli.Options
		flags searchFlags
	)
	cmd := &cobra.Command{
		Use:   "npl-search (--jm LAMBDA | --dir MU) --cut N --top M",
		Short: "Rank and score the NPL queries with one similarity",
		Long: `Ranks the selected NPL queries with Jelinek-Mercer (--jm) or Dirichlet
(--dir) smoothing, keeping the top M documents, and computes P@N, Recall@N,
RR and AP@N per query. --jm 0 ranks with the default similarity.

Writes npl.<jm|dir>.<M>.hits.<lambda|mu>.<value>.q<range>.txt and
npl.<jm|dir>.<N>.cut.<lambda|mu>.<value>.q<range>.csv.`,
		Args: cli.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd, &opts, flags)
		},
	}
	opts.Bind(cmd)
	cmd.Flags().StringVar(&flags.index, "index", "", "Index directory (default from config)")
	cmd.Flags().StringVar(&flags.analyzer, "analyzer", "", "Expected analyzer; must match the index manifest")
	cmd.Flags().Float64Var(&flags.jm, "jm", 0, "Jelinek-Mercer lambda")
	cmd.Flags().Float64Var(&flags.dir, "dir", 0, "Dirichlet mu")
	cmd.Flags().IntVar(&flags.cut, "cut", 0, "Rank cut-off for the metrics (required)")
	cmd.Flags().IntVar(&flags.top, "top", 0, "Documents retrieved per query (required)")
	cmd.Flags().StringVar(&flags.queries, "queries", "all", "Queries to run: all, N or A-B")
	return cmd
}

// selectModel returns the model named in the output files and the model
// actually ranked with.
func selectModel(cmd *cobra.Command, flags searchFlags) (named, ranked eval.Model, err error) {
	jm, dir := cmd.Flags().Changed("jm"), cmd.Flags().Changed("dir")
	switch {
	case jm && dir:
		return named, ranked, apperrors.Usagef("--jm and --dir are mutually exclusive")
	case jm:
		named = eval.Model{Family: eval.FamilyJM, Param: flags.jm}
	case dir:
		named = eval.Model{Family: eval.FamilyDirichlet, Param: flags.dir}
	default:
		return named, ranked, apperrors.Usagef("one of --jm or --dir is required")
	}
	ranked = sweep.ModelFor(named.Family, named.Param)
	if err := ranked.Validate(); err != nil {
		return named, ranked, err
	}
	return named, ranked, nil
}

func runSearch(cmd *cobra.Command, opts *cli.Options, flags searchFlags) error {
	named, ranked, err := selectModel(cmd, flags)
	if err != nil {
		return err
	}
	if flags.cut <= 0 || flags.top <= 0 {
		return apperrors.Usagef("--cut and --top must be positive")
	}
	rng, err := testset.ParseRange(flags.queries)
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

	rt := cli.NewRuntime("npl-search", cfg)
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Error("closing runtime", "error", err)
		}
	}()

	ts, err := testset.LoadFiles(cfg.Eval.QueriesPath, cfg.Eval.JudgmentsPath, rng)
	if err != nil {
		return err
	}
	engine, err := rt.OpenIndex(cfg.Index.DataDir, flags.analyzer)
	if err != nil {
		return err
	}
	ranker, err := rt.Ranker(cmd.Context(), engine)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := evaluate.New(ranker, rt.Metrics).Evaluate(cmd.Context(), ranked, ts, evaluate.Options{
		Cut:   flags.cut,
		Depth: flags.top,
		Phase: "search",
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Eval.OutputDir, 0o755); err != nil {
		return err
	}
	hitsPath := filepath.Join(cfg.Eval.OutputDir, report.HitsFileName(named, flags.top, rng))
	if err := report.WriteFile(hitsPath, func(w io.Writer) error {
		return report.WriteHits(w, res)
	}); err != nil {
		return err
	}
	scoresPath := filepath.Join(cfg.Eval.OutputDir, report.SearchTableName(named, flags.cut, rng))
	if err := report.WriteFile(scoresPath, func(w io.Writer) error {
		return report.WriteScores(w, report.Scores{Cut: flags.cut, Rows: res.Rows(), Means: res.Means})
	}); err != nil {
		return err
	}
	if err := report.WriteMeta(scoresPath, report.TableMeta{
		Kind:      report.KindSearch,
		Family:    string(named.Family),
		Metric:    string(metrics.Precision),
		MetricKey: metrics.Precision.Token(flags.cut),
		Cut:       flags.cut,
		TestRange: rng.String(),
		Parameter: named.Param,
		IndexID:   engine.Manifest().ID,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	slog.Info("search evaluation complete",
		"model", ranked.String(),
		"queries", ts.Len(),
		"mean_precision", res.Means.Precision,
		"mean_average_precision", res.Means.AveragePrecision,
		"duration", time.Since(start),
	)
	return printSummary(cmd.OutOrStdout(), res, hitsPath, scoresPath)
}

func printSummary(w io.Writer, res *evaluate.Result, hitsPath, scoresPath string) error {
	cut := res.Cut
	_, err := fmt.Fprintf(w,
		"%s over %d queries\n  %s=%s  %s=%s  %s=%s  %s=%s\nHits written to %s\nMetrics written to %s\n",
		res.Model, len(res.Queries),
		metrics.Precision.Label(cut), report.FormatValue(res.Means.Precision),
		metrics.Recall.Label(cut), report.FormatValue(res.Means.Recall),
		metrics.ReciprocalRank.Label(cut), report.FormatValue(res.Means.ReciprocalRank),
		metrics.AveragePrecision.Label(cut), report.FormatValue(res.Means.AveragePrecision),
		hitsPath, scoresPath,
	)
	return err
}
