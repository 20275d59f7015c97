// Command npl-runs lists the sweeps stored in the run archive, or prints
// the per-candidate results of one of them.
//
//	npl-runs --config npleval.yaml --limit 10
//	npl-runs --config npleval.yaml --run 7f1c2a4e-...
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/cli"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/archive"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/report"
	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
)

type runsFlags struct {
	limit int
	run   string
}

type runArchive interface {
	Recent(ctx context.Context, limit int) ([]archive.RunSummary, error)
	Load(ctx context.Context, runID string) (*archive.Record, error)
}

func main() {
	os.Exit(cli.Execute(newRootCmd()))
}

func newRootCmd() *cobra.Command {
	var (
		opts  cli.Options
		flags runsFlags
	)
	cmd := &cobra.Command{
		Use:   "npl-runs [--limit N | --run ID]",
		Short: "Inspect the sweeps stored in the run archive",
		Long: `Lists the most recent sweeps that npl-train stored in the PostgreSQL run
archive, newest first. With --run, prints the training means of every
candidate and the test result of the selected one.

The archive must be enabled in the configuration (postgres.enabled).`,
		Args: cli.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRuns(cmd, &opts, flags)
		},
	}
	opts.Bind(cmd)
	cmd.Flags().IntVar(&flags.limit, "limit", 20, "Number of runs to list")
	cmd.Flags().StringVar(&flags.run, "run", "", "Show one run by id")
	return cmd
}

func runRuns(cmd *cobra.Command, opts *cli.Options, flags runsFlags) error {
	if flags.limit <= 0 {
		return apperrors.Usagef("--limit must be positive, got %d", flags.limit)
	}
	cfg, err := opts.Load()
	if err != nil {
		return err
	}
	rt := cli.NewRuntime("npl-runs", cfg)
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Error("closing runtime", "error", err)
		}
	}()
	store, err := rt.Archive(cmd.Context())
	if err != nil {
		return err
	}
	return inspect(cmd.Context(), cmd.OutOrStdout(), store, flags)
}

func inspect(ctx context.Context, w io.Writer, store runArchive, flags runsFlags) error {
	if flags.run != "" {
		rec, err := store.Load(ctx, flags.run)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("run %s is not in the archive", flags.run)
		}
		return printRecord(w, flags.run, rec)
	}
	runs, err := store.Recent(ctx, flags.limit)
	if err != nil {
		return err
	}
	return printRuns(w, runs)
}

func printRuns(w io.Writer, runs []archive.RunSummary) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No archived runs")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tFAMILY\tMETRIC\tCUT\tTRAIN\tTEST\tSELECTED\tTEST MEAN\tFINISHED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r.RunID, r.Family, r.Metric, r.Cut, r.TrainRange, r.TestRange,
			report.FormatValue(r.Selected), report.FormatValue(r.TestMean),
			r.FinishedAt.UTC().Format(time.RFC3339),
		)
	}
	return tw.Flush()
}

func printRecord(w io.Writer, runID string, rec *archive.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", runID)
	if rec.IndexID != "" {
		fmt.Fprintf(&b, "Index: %s\n", rec.IndexID)
	}
	fmt.Fprintf(&b, "Training queries: %d\n", len(rec.Ordinals))
	for _, c := range rec.Candidates {
		fmt.Fprintf(&b, "  %-12s %s\n", c.Model, report.FormatValue(c.Mean))
	}
	fmt.Fprintf(&b, "Test: %s over %d queries, mean %s\n",
		rec.Test.Model, len(rec.Test.Scores), report.FormatValue(rec.Test.Mean))
	_, err := io.WriteString(w, b.String())
	return err
}
