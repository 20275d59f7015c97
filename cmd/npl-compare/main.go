// Command npl-compare tests whether two test tables produced by npl-train
// for the same test queries and metric differ significantly.
//
//	npl-compare --test wilcoxon --alpha 0.05 jm.test.csv dir.test.csv
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/cli"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/report"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/significance"
	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
)

type compareFlags struct {
	test        string
	alpha       float64
	alternative string
}

func main() {
	os.Exit(cli.Execute(newRootCmd()))
}

func newRootCmd() *cobra.Command {
	var (
		opts  cli.Options
		flags compareFlags
	)
	cmd := &cobra.Command{
		Use:   "npl-compare --test t|wilcoxon --alpha A FILE1 FILE2",
		Short: "Paired significance test between two result tables",
		Long: `Reads the per-query values of two test tables and runs a paired t-test
or a Wilcoxon signed-rank test. Both tables must have been produced for the
same test queries and metric; this is checked from their .meta.yaml
sidecars, or from the file names when no sidecar exists.

The null hypothesis is rejected when the p-value is below alpha
(0 < alpha <= 0.5).`,
		Args: cli.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, &opts, flags, args[0], args[1])
		},
	}
	opts.Bind(cmd)
	cmd.Flags().StringVar(&flags.test, "test", "", "Test to run: t or wilcoxon (required)")
	cmd.Flags().Float64Var(&flags.alpha, "alpha", 0, "Significance level, 0 < alpha <= 0.5 (required)")
	cmd.Flags().StringVar(&flags.alternative, "alternative", string(significance.TwoSided), "Alternative hypothesis: two-sided, greater or less")
	return cmd
}

func runCompare(cmd *cobra.Command, opts *cli.Options, flags compareFlags, path1, path2 string) error {
	if flags.test == "" {
		return apperrors.Usagef("--test is required")
	}
	kind, err := significance.ParseKind(flags.test)
	if err != nil {
		return err
	}
	alt, err := significance.ParseAlternative(flags.alternative)
	if err != nil {
		return err
	}
	req := significance.Request{
		Path1:       path1,
		Path2:       path2,
		Kind:        kind,
		Alpha:       flags.alpha,
		Alternative: alt,
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if _, err := opts.Load(); err != nil {
		return err
	}
	out, err := significance.Compare(req)
	if err != nil {
		return err
	}
	return printOutcome(cmd.OutOrStdout(), out)
}

func printOutcome(w io.Writer, out *significance.Outcome) error {
	verdict := "not enough evidence to reject the null hypothesis"
	if out.Reject {
		verdict = "the null hypothesis is rejected"
	}
	_, err := fmt.Fprintf(w,
		"Test: %s (%s)\nAlpha: %s\nPairs: %d\nMeans: %s vs %s\nStatistic: %s\nP-value: %s\nResult: %s\n",
		out.Kind, out.Alternative,
		report.FormatValue(out.Alpha),
		out.Result.N,
		report.FormatValue(out.Mean1), report.FormatValue(out.Mean2),
		report.FormatValue(out.Result.Statistic),
		report.FormatValue(out.Result.PValue),
		verdict,
	)
	return err
}
