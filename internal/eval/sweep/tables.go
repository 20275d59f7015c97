package sweep

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/report"
)

// TableReporter writes the training and test tables with their metadata
// sidecars into Dir.
type TableReporter struct {
	Dir string

	// Written holds the paths of the last report, training table first.
	Written []string
}

func (t *TableReporter) Report(_ context.Context, res *Result) error {
	cfg := res.Config
	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return err
	}
	trainPath := filepath.Join(t.Dir, report.TrainingTableName(cfg.Family, cfg.TrainRange, cfg.TestRange, cfg.Metric, cfg.Cut))
	testPath := filepath.Join(t.Dir, report.TestTableName(cfg.Family, cfg.TrainRange, cfg.TestRange, cfg.Metric, cfg.Cut))

	if err := report.WriteFile(trainPath, func(w io.Writer) error {
		return report.WriteGrid(w, TrainingGrid(res))
	}); err != nil {
		return err
	}
	if err := report.WriteFile(testPath, func(w io.Writer) error {
		return report.WriteSeries(w, TestSeries(res))
	}); err != nil {
		return err
	}
	for path, kind := range map[string]string{trainPath: report.KindTraining, testPath: report.KindTest} {
		if err := report.WriteMeta(path, tableMeta(res, kind)); err != nil {
			return err
		}
	}
	t.Written = []string{trainPath, testPath}
	slog.Info("sweep tables written", "training", trainPath, "test", testPath)
	return nil
}

// TrainingGrid lays the training results out as the training table.
func TrainingGrid(res *Result) report.Grid {
	g := report.Grid{}
	for _, cr := range res.Training {
		g.Labels = append(g.Labels, report.CandidateLabel(res.Config.Family, cr.Candidate))
		g.Columns = append(g.Columns, cr.Scores)
		g.Means = append(g.Means, cr.Mean)
	}
	if len(res.Training) > 0 {
		g.Ordinals = res.Training[0].Ordinals
	}
	return g
}

// TestSeries lays the test result out as the test table.
func TestSeries(res *Result) report.Series {
	cfg := res.Config
	return report.Series{
		Label:       report.ChosenLabel(cfg.Family, res.Test.Candidate),
		MetricLabel: cfg.Metric.Label(cfg.Cut),
		Ordinals:    res.Test.Ordinals,
		Values:      res.Test.Scores,
		Mean:        res.Test.Mean,
	}
}

func tableMeta(res *Result, kind string) report.TableMeta {
	cfg := res.Config
	return report.TableMeta{
		Kind:       kind,
		RunID:      res.RunID,
		Family:     string(cfg.Family),
		Metric:     string(cfg.Metric),
		MetricKey:  cfg.Metric.Token(cfg.Cut),
		Cut:        cfg.Cut,
		TrainRange: cfg.TrainRange.String(),
		TestRange:  cfg.TestRange.String(),
		Parameter:  res.SelectedCandidate(),
		IndexID:    cfg.IndexID,
		CreatedAt:  res.FinishedAt,
	}
}
