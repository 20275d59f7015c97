// Command npl-train tunes the smoothing parameter of a language-model
// similarity on a training range of NPL queries and evaluates the chosen
// value on a test range.
//
//	npl-train --evaljm 1-30,31-93 --cut 10 --metrica MAP --indexin index
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

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

type trainFlags struct {
	evalJM    []string
	evalDir   []string
	cut       int
	metric    string
	index     string
	analyzer  string
	testDepth int
}

func main() {
	os.Exit(cli.Execute(newRootCmd()))
}

func newRootCmd() *cobra.Command {
	var (
		opts  cli.Options
		flags trainFlags
	)
	cmd := &cobra.Command{
		Use:   "npl-train (--evaljm | --evaldir) TRAIN,TEST --cut N --metrica P|R|MRR|MAP --indexin DIR",
		Short: "Tune a similarity parameter on training queries and test it",
		Long: `Sweeps the Jelinek-Mercer lambda (--evaljm) or the Dirichlet mu (--evaldir)
over a fixed grid on the TRAIN query range, picks the value with the best
mean metric and evaluates it on the TEST range. Ranges are N or A-B and must
not overlap.

Writes npl.<jm|dir>.training.<TRAIN>.test.<TEST>.<metric>.training.csv and
the matching .test.csv, each with a .meta.yaml sidecar.`,
		Args: cli.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrain(cmd, &opts, flags)
		},
	}
	opts.Bind(cmd)
	cmd.Flags().StringSliceVar(&flags.evalJM, "evaljm", nil, "Training and test ranges for the Jelinek-Mercer sweep")
	cmd.Flags().StringSliceVar(&flags.evalDir, "evaldir", nil, "Training and test ranges for the Dirichlet sweep")
	cmd.Flags().IntVar(&flags.cut, "cut", 0, "Rank cut-off for the metric (required)")
	cmd.Flags().StringVar(&flags.metric, "metrica", "", "Metric to optimise: P, R, MRR or MAP (required)")
	cmd.Flags().StringVar(&flags.index, "indexin", "", "Index directory (default from config)")
	cmd.Flags().StringVar(&flags.analyzer, "analyzer", "", "Expected analyzer; must match the index manifest")
	cmd.Flags().IntVar(&flags.testDepth, "test-depth", 0, "Documents retrieved per test query (default from config)")
	return cmd
}

// sweepConfig turns the flags into a validated sweep configuration.
func sweepConfig(flags trainFlags) (sweep.Config, error) {
	var (
		family eval.Family
		ranges []string
	)
	switch {
	case len(flags.evalJM) > 0 && len(flags.evalDir) > 0:
		return sweep.Config{}, apperrors.Usagef("choose only one of --evaljm or --evaldir")
	case len(flags.evalJM) > 0:
		family, ranges = eval.FamilyJM, flags.evalJM
	case len(flags.evalDir) > 0:
		family, ranges = eval.FamilyDirichlet, flags.evalDir
	default:
		return sweep.Config{}, apperrors.Usagef("one of --evaljm or --evaldir is required")
	}
	if len(ranges) != 2 {
		return sweep.Config{}, apperrors.Usagef("--eval%s takes TRAIN,TEST, got %q", family, strings.Join(ranges, ","))
	}
	if flags.metric == "" {
		return sweep.Config{}, apperrors.Usagef("--metrica is required")
	}
	metric, err := metrics.ParseMetric(flags.metric)
	if err != nil {
		return sweep.Config{}, err
	}
	train, err := testset.ParseRange(ranges[0])
	if err != nil {
		return sweep.Config{}, err
	}
	test, err := testset.ParseRange(ranges[1])
	if err != nil {
		return sweep.Config{}, err
	}
	cfg := sweep.Config{
		Family:     family,
		Metric:     metric,
		Cut:        flags.cut,
		TestDepth:  flags.testDepth,
		TrainRange: train,
		TestRange:  test,
	}
	return cfg, cfg.Validate()
}

func runTrain(cmd *cobra.Command, opts *cli.Options, flags trainFlags) error {
	sc, err := sweepConfig(flags)
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
	if sc.TestDepth == 0 {
		sc.TestDepth = cfg.Eval.TestDepth
	}

	rt := cli.NewRuntime("npl-train", cfg)
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Error("closing runtime", "error", err)
		}
	}()

	train, err := testset.LoadFiles(cfg.Eval.QueriesPath, cfg.Eval.JudgmentsPath, sc.TrainRange)
	if err != nil {
		return fmt.Errorf("loading training queries: %w", err)
	}
	test, err := testset.LoadFiles(cfg.Eval.QueriesPath, cfg.Eval.JudgmentsPath, sc.TestRange)
	if err != nil {
		return fmt.Errorf("loading test queries: %w", err)
	}
	engine, err := rt.OpenIndex(cfg.Index.DataDir, flags.analyzer)
	if err != nil {
		return err
	}
	sc.IndexID = engine.Manifest().ID
	ranker, err := rt.Ranker(cmd.Context(), engine)
	if err != nil {
		return err
	}

	tables := &sweep.TableReporter{Dir: cfg.Eval.OutputDir}
	reporters, err := rt.Reporters(cmd.Context())
	if err != nil {
		return err
	}
	reporters = append([]sweep.Reporter{tables}, reporters...)

	ctrl := sweep.NewController(evaluate.New(ranker, rt.Metrics), rt.Metrics, reporters...)
	res, err := ctrl.Run(cmd.Context(), sc, train, test)
	if err != nil {
		return err
	}
	return printSweep(cmd.OutOrStdout(), res, tables.Written)
}

func printSweep(w io.Writer, res *sweep.Result, written []string) error {
	cfg := res.Config
	fmt.Fprintf(w, "Training %s on queries %s (%s)\n", cfg.Family, cfg.TrainRange, cfg.Metric.Label(cfg.Cut))
	for i, cr := range res.Training {
		marker := ""
		if i == res.Selected {
			marker = "  <- selected"
		}
		fmt.Fprintf(w, "  %-12s %s%s\n",
			report.CandidateLabel(cfg.Family, cr.Candidate), report.FormatValue(cr.Mean), marker)
	}
	fmt.Fprintf(w, "Test on queries %s with %s: %s\n",
		cfg.TestRange, report.ChosenLabel(cfg.Family, res.SelectedCandidate()), report.FormatValue(res.Test.Mean))
	for _, path := range written {
		fmt.Fprintf(w, "Written %s\n", path)
	}
	return nil
}
