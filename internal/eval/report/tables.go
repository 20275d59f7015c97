// Package report writes and reads the result tables, the ranked-hits
// listing and the metadata sidecars.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/metrics"
	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
)

// Grid is the training table: one column per candidate.
type Grid struct {
	Labels   []string
	Ordinals []int
	// Columns[c][q] is the score of candidate c on the q-th query.
	Columns [][]float64
	Means   []float64
}

// Series is a single-column table such as the test table.
type Series struct {
	Label       string
	MetricLabel string
	Ordinals    []int
	Values      []float64
	Mean        float64
}

// Scores is the single-configuration table with all four measures.
type Scores struct {
	Cut   int
	Rows  []metrics.Row
	Means metrics.Row
}

func WriteGrid(w io.Writer, g Grid) error {
	if len(g.Columns) != len(g.Labels) || len(g.Means) != len(g.Labels) {
		return fmt.Errorf("grid has %d labels, %d columns and %d means", len(g.Labels), len(g.Columns), len(g.Means))
	}
	cw := csv.NewWriter(w)
	cw.Write(append([]string{"Query"}, g.Labels...))
	for q, ordinal := range g.Ordinals {
		record := make([]string, 0, len(g.Labels)+1)
		record = append(record, strconv.Itoa(ordinal))
		for c := range g.Columns {
			record = append(record, FormatValue(g.Columns[c][q]))
		}
		cw.Write(record)
	}
	cw.Write(append([]string{MeanLabel}, formatAll(g.Means)...))
	cw.Flush()
	return cw.Error()
}

func WriteSeries(w io.Writer, s Series) error {
	if len(s.Ordinals) != len(s.Values) {
		return fmt.Errorf("series has %d ordinals and %d values", len(s.Ordinals), len(s.Values))
	}
	cw := csv.NewWriter(w)
	cw.Write([]string{s.Label, s.MetricLabel})
	for i, ordinal := range s.Ordinals {
		cw.Write([]string{strconv.Itoa(ordinal), FormatValue(s.Values[i])})
	}
	cw.Write([]string{MeanLabel, FormatValue(s.Mean)})
	cw.Flush()
	return cw.Error()
}

func WriteScores(w io.Writer, s Scores) error {
	cut := strconv.Itoa(s.Cut)
	cw := csv.NewWriter(w)
	cw.Write([]string{"Query", "P@" + cut, "Recall@" + cut, "RR", "AP@" + cut})
	for _, r := range s.Rows {
		cw.Write([]string{
			strconv.Itoa(r.Ordinal),
			FormatValue(r.Precision),
			FormatValue(r.Recall),
			FormatValue(r.ReciprocalRank),
			FormatValue(r.AveragePrecision),
		})
	}
	cw.Write([]string{
		MeanLabel,
		FormatValue(s.Means.Precision),
		FormatValue(s.Means.Recall),
		FormatValue(s.Means.ReciprocalRank),
		FormatValue(s.Means.AveragePrecision),
	})
	cw.Flush()
	return cw.Error()
}

func formatAll(vs []float64) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = FormatValue(v)
	}
	return out
}

// ReadSeries reads the first value column of a table: the header is
// skipped and rows are read up to the mean row.
func ReadSeries(r io.Reader) (*Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, apperrors.Parsef("table is empty")
	}
	if err != nil {
		return nil, apperrors.Parsef("reading table header: %v", err)
	}
	s := &Series{}
	if len(header) > 0 {
		s.Label = header[0]
	}
	if len(header) > 1 {
		s.MetricLabel = header[1]
	}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return nil, apperrors.Parsef("table has no %s row", MeanLabel)
		}
		if err != nil {
			return nil, apperrors.Parsef("reading table: %v", err)
		}
		if len(record) < 2 {
			line, _ := cr.FieldPos(0)
			return nil, apperrors.Parsef("line %d: want ordinal and value", line)
		}
		label := strings.TrimSpace(record[0])
		value, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			line, _ := cr.FieldPos(1)
			return nil, apperrors.Parsef("line %d: value %q is not a number", line, record[1])
		}
		if label == MeanLabel {
			s.Mean = value
			return s, nil
		}
		ordinal, err := strconv.Atoi(label)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, apperrors.Parsef("line %d: ordinal %q is not an integer", line, label)
		}
		s.Ordinals = append(s.Ordinals, ordinal)
		s.Values = append(s.Values, value)
	}
}

// ReadSeriesFile is ReadSeries over a path.
func ReadSeriesFile(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening table: %w", err)
	}
	defer f.Close()
	s, err := ReadSeries(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// WriteFile creates path and hands it to write.
func WriteFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
