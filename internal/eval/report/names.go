package report

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/metrics"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/testset"
	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
)

const (
	testMarker = ".test."
	testSuffix = ".test.csv"
	// MeanLabel labels the trailing mean row of every table.
	MeanLabel = "Promedio"
)

// FormatValue renders a float with the fewest digits that read back to the
// same value.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatParam renders a parameter the way file names and column labels
// carry it: lambda always with a decimal point, mu as an integer.
func FormatParam(family eval.Family, v float64) string {
	if family == eval.FamilyDirichlet {
		return strconv.Itoa(int(v))
	}
	s := FormatValue(v)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// CandidateLabel is the training-table column of a candidate: lambda_0.1 or
// mu_200.
func CandidateLabel(family eval.Family, v float64) string {
	return family.ParamName() + "_" + FormatParam(family, v)
}

// ChosenLabel heads the test table: jm_0.5 or mu_1000.
func ChosenLabel(family eval.Family, v float64) string {
	if family == eval.FamilyDirichlet {
		return "mu_" + FormatParam(family, v)
	}
	return string(family) + "_" + FormatParam(family, v)
}

func sweepBase(family eval.Family, train, test testset.Range, metric metrics.Metric, cut int) string {
	return fmt.Sprintf("npl.%s.training.%s.test.%s.%s", family, train, test, metric.Token(cut))
}

// TrainingTableName is npl.<fam>.training.<train>.test.<test>.<token>.training.csv.
func TrainingTableName(family eval.Family, train, test testset.Range, metric metrics.Metric, cut int) string {
	return sweepBase(family, train, test, metric, cut) + ".training.csv"
}

// TestTableName is npl.<fam>.training.<train>.test.<test>.<token>.test.csv.
func TestTableName(family eval.Family, train, test testset.Range, metric metrics.Metric, cut int) string {
	return sweepBase(family, train, test, metric, cut) + testSuffix
}

// SearchTableName is npl.jm.<cut>.cut.lambda.<λ>.q<range>.csv.
func SearchTableName(model eval.Model, cut int, rng testset.Range) string {
	return fmt.Sprintf("npl.%s.%d.cut.%s.%s.q%s.csv",
		model.Family, cut, model.Family.ParamName(), FormatParam(model.Family, model.Param), rng)
}

// HitsFileName is npl.jm.<top>.hits.lambda.<λ>.q<range>.txt.
func HitsFileName(model eval.Model, top int, rng testset.Range) string {
	return fmt.Sprintf("npl.%s.%d.hits.%s.%s.q%s.txt",
		model.Family, top, model.Family.ParamName(), FormatParam(model.Family, model.Param), rng)
}

// KeyFromFilename extracts the comparability key of a test table from its
// name: the text between the first ".test." and the ".test.csv" suffix.
func KeyFromFilename(path string) (string, error) {
	name := filepath.Base(path)
	start := strings.Index(name, testMarker)
	end := strings.LastIndex(name, testSuffix)
	if start < 0 || end < 0 || start+len(testMarker) > end {
		return "", apperrors.Newf(apperrors.ErrComparability, "file name %q carries no %q...%q key", name, testMarker, testSuffix)
	}
	return name[start+len(testMarker) : end], nil
}
