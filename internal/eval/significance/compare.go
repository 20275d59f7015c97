package significance

import (
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/report"
	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
)

// Request names two tables and the test to run on them.
type Request struct {
	Path1, Path2 string
	Kind         Kind
	Alpha        float64
	Alternative  Alternative
}

func (r Request) Validate() error {
	if r.Path1 == "" || r.Path2 == "" {
		return apperrors.Usagef("two result tables are required")
	}
	if _, err := ParseKind(string(r.Kind)); err != nil {
		return err
	}
	if !(r.Alpha > 0 && r.Alpha <= 0.5) {
		return apperrors.Usagef("alpha must satisfy 0 < alpha <= 0.5, got %v", r.Alpha)
	}
	if _, err := ParseAlternative(string(r.Alternative)); err != nil {
		return err
	}
	return nil
}

// Outcome is the verdict of a comparison. Mean1 and Mean2 are the
// Promedio rows of the tables, so they follow the zero-excluding mean.
type Outcome struct {
	Request
	Key    string
	Mean1  float64
	Mean2  float64
	Result Result
	Reject bool
}

// Compare checks that both tables were produced for the same test queries
// and metric, then runs the requested test on their per-query values. Keys
// are checked before any table is read.
func Compare(req Request) (*Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key1, err := report.ComparabilityKey(req.Path1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Path1, err)
	}
	key2, err := report.ComparabilityKey(req.Path2)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Path2, err)
	}
	if key1 != key2 {
		return nil, apperrors.Newf(apperrors.ErrComparability,
			"results were not obtained for the same metric and test queries (%q vs %q)", key1, key2)
	}

	s1, err := report.ReadSeriesFile(req.Path1)
	if err != nil {
		return nil, err
	}
	s2, err := report.ReadSeriesFile(req.Path2)
	if err != nil {
		return nil, err
	}
	res, err := Run(req.Kind, s1.Values, s2.Values, req.Alternative)
	if err != nil {
		return nil, err
	}
	out := &Outcome{
		Request: req,
		Key:     key1,
		Mean1:   s1.Mean,
		Mean2:   s2.Mean,
		Result:  res,
		Reject:  res.PValue < req.Alpha,
	}
	slog.Info("significance test completed",
		"test", string(req.Kind),
		"alternative", string(req.Alternative),
		"key", key1,
		"pairs", len(s1.Values),
		"p_value", res.PValue,
		"reject", out.Reject,
	)
	return out, nil
}
