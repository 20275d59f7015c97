// Package metrics computes per-query ranking metrics at a rank cutoff and
// the mean used to aggregate them.
package metrics

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/testset"
	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
)

// Metric selects one of the per-query measures.
type Metric string

const (
	Precision        Metric = "P"
	Recall           Metric = "R"
	ReciprocalRank   Metric = "MRR"
	AveragePrecision Metric = "MAP"
)

// Metrics lists the measures in table column order.
var Metrics = []Metric{Precision, Recall, ReciprocalRank, AveragePrecision}

func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToUpper(s)); m {
	case Precision, Recall, ReciprocalRank, AveragePrecision:
		return m, nil
	}
	return "", apperrors.Usagef("unknown metric %q (want P, R, MRR or MAP)", s)
}

// Label is the column header of the metric: P@10, Recall@10, MRR or MAP@10.
func (m Metric) Label(cut int) string {
	switch m {
	case Precision:
		return "P@" + strconv.Itoa(cut)
	case Recall:
		return "Recall@" + strconv.Itoa(cut)
	case ReciprocalRank:
		return "MRR"
	default:
		return "MAP@" + strconv.Itoa(cut)
	}
}

// Token is the metric as it appears in result file names: p10, r10, mrr,
// map10.
func (m Metric) Token(cut int) string {
	if m == ReciprocalRank {
		return "mrr"
	}
	return strings.ToLower(string(m)) + strconv.Itoa(cut)
}

// Row holds the four measures of one query.
type Row struct {
	Ordinal          int
	Precision        float64
	Recall           float64
	ReciprocalRank   float64
	AveragePrecision float64
}

// Value returns the measure selected by m.
func (r Row) Value(m Metric) float64 {
	switch m {
	case Precision:
		return r.Precision
	case Recall:
		return r.Recall
	case ReciprocalRank:
		return r.ReciprocalRank
	default:
		return r.AveragePrecision
	}
}

func validateCut(cut int) error {
	if cut <= 0 {
		return apperrors.Usagef("cut must be positive, got %d", cut)
	}
	return nil
}

func top(cut int, ranking []string) []string {
	if len(ranking) > cut {
		return ranking[:cut]
	}
	return ranking
}

// hits counts the distinct relevant documents within cut. A document listed
// twice counts once.
func hits(cut int, relevant testset.Relevant, ranking []string) int {
	seen := make(map[string]struct{})
	for _, doc := range top(cut, ranking) {
		if relevant.Contains(doc) {
			seen[doc] = struct{}{}
		}
	}
	return len(seen)
}

// PrecisionAt is the fraction of the first cut positions holding a relevant
// document. Positions past the end of a short ranking count as misses.
func PrecisionAt(cut int, relevant testset.Relevant, ranking []string) float64 {
	return float64(hits(cut, relevant, ranking)) / float64(cut)
}

// RecallAt is the fraction of the relevant documents found in the first cut
// positions, or 0 when nothing is relevant.
func RecallAt(cut int, relevant testset.Relevant, ranking []string) float64 {
	if len(relevant) == 0 {
		return 0
	}
	return float64(hits(cut, relevant, ranking)) / float64(len(relevant))
}

// ReciprocalRankAt is 1/rank of the first relevant document within cut.
func ReciprocalRankAt(cut int, relevant testset.Relevant, ranking []string) float64 {
	for i, doc := range top(cut, ranking) {
		if relevant.Contains(doc) {
			return 1 / float64(i+1)
		}
	}
	return 0
}

// AveragePrecisionAt sums the precision at each relevant position within cut
// and divides by the number of relevant documents, relevant documents not
// retrieved contributing zero. It is 0 when nothing is relevant.
func AveragePrecisionAt(cut int, relevant testset.Relevant, ranking []string) float64 {
	if len(relevant) == 0 {
		return 0
	}
	seen := make(map[string]struct{})
	sum := 0.0
	for i, doc := range top(cut, ranking) {
		if _, dup := seen[doc]; dup || !relevant.Contains(doc) {
			continue
		}
		seen[doc] = struct{}{}
		sum += float64(len(seen)) / float64(i+1)
	}
	return sum / float64(len(relevant))
}

// Compute returns all four measures of one ranking.
func Compute(ordinal, cut int, relevant testset.Relevant, ranking []string) (Row, error) {
	if err := validateCut(cut); err != nil {
		return Row{}, err
	}
	return Row{
		Ordinal:          ordinal,
		Precision:        PrecisionAt(cut, relevant, ranking),
		Recall:           RecallAt(cut, relevant, ranking),
		ReciprocalRank:   ReciprocalRankAt(cut, relevant, ranking),
		AveragePrecision: AveragePrecisionAt(cut, relevant, ranking),
	}, nil
}

// Of computes the single measure m.
func Of(m Metric, cut int, relevant testset.Relevant, ranking []string) (float64, error) {
	if err := validateCut(cut); err != nil {
		return 0, err
	}
	switch m {
	case Precision:
		return PrecisionAt(cut, relevant, ranking), nil
	case Recall:
		return RecallAt(cut, relevant, ranking), nil
	case ReciprocalRank:
		return ReciprocalRankAt(cut, relevant, ranking), nil
	case AveragePrecision:
		return AveragePrecisionAt(cut, relevant, ranking), nil
	}
	return 0, fmt.Errorf("unknown metric %q", m)
}

// Mean averages the non-zero values of series and is 0 when there are none.
// Queries scoring exactly zero are left out of the average, so the result
// is not the arithmetic mean over all queries; the result tables have
// always been aggregated this way and stay comparable only if it is kept.
func Mean(series []float64) float64 {
	nonZero := make([]float64, 0, len(series))
	for _, v := range series {
		if v != 0 {
			nonZero = append(nonZero, v)
		}
	}
	if len(nonZero) == 0 {
		return 0
	}
	return stat.Mean(nonZero, nil)
}

// Column extracts the measure m from every row.
func Column(rows []Row, m Metric) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Value(m)
	}
	return out
}
