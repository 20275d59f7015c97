// Package significance decides whether two paired series of per-query
// scores differ, with a paired t-test or a Wilcoxon signed-rank test.
package significance

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
)

// Kind selects the test.
type Kind string

const (
	TTest    Kind = "t"
	Wilcoxon Kind = "wilcoxon"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case TTest, Wilcoxon:
		return Kind(s), nil
	}
	return "", apperrors.Usagef("unknown test %q (want t or wilcoxon)", s)
}

// Alternative is the alternative hypothesis about x - y.
type Alternative string

const (
	TwoSided Alternative = "two-sided"
	Greater  Alternative = "greater"
	Less     Alternative = "less"
)

func ParseAlternative(s string) (Alternative, error) {
	switch Alternative(s) {
	case TwoSided, Greater, Less:
		return Alternative(s), nil
	}
	return "", apperrors.Usagef("unknown alternative %q (want two-sided, greater or less)", s)
}

// Result is the outcome of one test.
type Result struct {
	Statistic float64
	PValue    float64
	// N is the number of pairs the statistic is based on; the Wilcoxon test
	// drops pairs with no difference.
	N int
}

func differences(x, y []float64) ([]float64, error) {
	if len(x) != len(y) {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "paired test needs series of equal length, got %d and %d", len(x), len(y))
	}
	d := make([]float64, len(x))
	for i := range x {
		d[i] = x[i] - y[i]
	}
	return d, nil
}

// PairedTTest tests whether the mean of x - y is zero. When the differences
// have no variance the test degenerates: p is 1 if they are all zero and 0
// otherwise.
func PairedTTest(x, y []float64, alt Alternative) (Result, error) {
	d, err := differences(x, y)
	if err != nil {
		return Result{}, err
	}
	n := len(d)
	if n < 2 {
		return Result{}, apperrors.Newf(apperrors.ErrInvalidInput, "t-test needs at least 2 pairs, got %d", n)
	}
	mean, sd := stat.MeanStdDev(d, nil)
	if sd == 0 {
		switch {
		case mean == 0:
			return Result{Statistic: 0, PValue: 1, N: n}, nil
		case alt == Greater && mean < 0, alt == Less && mean > 0:
			return Result{Statistic: math.Copysign(math.Inf(1), mean), PValue: 1, N: n}, nil
		default:
			return Result{Statistic: math.Copysign(math.Inf(1), mean), PValue: 0, N: n}, nil
		}
	}
	t := mean / (sd / math.Sqrt(float64(n)))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	var p float64
	switch alt {
	case Greater:
		p = dist.Survival(t)
	case Less:
		p = dist.CDF(t)
	default:
		p = 2 * dist.Survival(math.Abs(t))
	}
	return Result{Statistic: t, PValue: math.Min(1, p), N: n}, nil
}

// WilcoxonSignedRank tests whether the differences x - y are symmetric
// about zero, using the normal approximation with tie and continuity
// corrections. Zero differences are discarded; when none remain p is 1.
// The statistic is the sum of the ranks of the positive differences.
//
// The p-values are not identical to those of the Apache Commons Math
// asymptotic test that produced older result sets. That test keeps zero
// differences in N, applies no tie correction and uses Wmin - E - 0.5, so
// expect small differences when ties or zero differences are present.
func WilcoxonSignedRank(x, y []float64, alt Alternative) (Result, error) {
	d, err := differences(x, y)
	if err != nil {
		return Result{}, err
	}
	if len(d) == 0 {
		return Result{}, apperrors.Newf(apperrors.ErrInvalidInput, "wilcoxon test needs at least 1 pair")
	}
	nonZero := d[:0:0]
	for _, v := range d {
		if v != 0 {
			nonZero = append(nonZero, v)
		}
	}
	n := len(nonZero)
	if n == 0 {
		return Result{Statistic: 0, PValue: 1, N: 0}, nil
	}

	ranks, tieCorrection := absRanks(nonZero)
	wPlus := 0.0
	for i, v := range nonZero {
		if v > 0 {
			wPlus += ranks[i]
		}
	}
	nf := float64(n)
	expected := nf * (nf + 1) / 4
	variance := nf*(nf+1)*(2*nf+1)/24 - tieCorrection/48
	if variance <= 0 {
		return Result{Statistic: wPlus, PValue: 1, N: n}, nil
	}
	sigma := math.Sqrt(variance)
	normal := distuv.UnitNormal
	var p float64
	switch alt {
	case Greater:
		p = normal.Survival((wPlus - expected - 0.5) / sigma)
	case Less:
		p = normal.CDF((wPlus - expected + 0.5) / sigma)
	default:
		z := math.Max(0, math.Abs(wPlus-expected)-0.5) / sigma
		p = 2 * normal.Survival(z)
	}
	return Result{Statistic: wPlus, PValue: math.Min(1, p), N: n}, nil
}

// absRanks ranks |v| ascending, giving tied values their average rank. It
// also returns Σ(t³ - t) over the tie groups.
func absRanks(v []float64) ([]float64, float64) {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return math.Abs(v[idx[a]]) < math.Abs(v[idx[b]])
	})
	ranks := make([]float64, len(v))
	ties := 0.0
	for i := 0; i < len(idx); {
		j := i + 1
		for j < len(idx) && math.Abs(v[idx[j]]) == math.Abs(v[idx[i]]) {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		if t := float64(j - i); t > 1 {
			ties += t*t*t - t
		}
		i = j
	}
	return ranks, ties
}

// Run dispatches on kind.
func Run(kind Kind, x, y []float64, alt Alternative) (Result, error) {
	switch kind {
	case TTest:
		return PairedTTest(x, y, alt)
	case Wilcoxon:
		return WilcoxonSignedRank(x, y, alt)
	}
	return Result{}, fmt.Errorf("unknown test %q", kind)
}
