// Package eval holds the types shared by the evaluation packages: the
// retrieval model being evaluated and the Ranker contract the retrieval
// engine fulfils.
package eval

import (
	"context"
	"fmt"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
)

// Family names a similarity family.
type Family string

const (
	// FamilyDefault is the engine's default similarity (BM25).
	FamilyDefault   Family = "default"
	FamilyJM        Family = "jm"
	FamilyDirichlet Family = "dir"
)

func ParseFamily(s string) (Family, error) {
	switch Family(s) {
	case FamilyDefault, FamilyJM, FamilyDirichlet:
		return Family(s), nil
	}
	return "", apperrors.Usagef("unknown similarity family %q", s)
}

// ParamName is the conventional name of the family's parameter as used in
// file names.
func (f Family) ParamName() string {
	switch f {
	case FamilyJM:
		return "lambda"
	case FamilyDirichlet:
		return "mu"
	}
	return ""
}

// Model is a similarity family with its parameter.
type Model struct {
	Family Family
	Param  float64
}

// Validate checks the parameter range of the family. Jelinek-Mercer needs
// lambda in (0,1]; Dirichlet needs mu >= 0.
func (m Model) Validate() error {
	switch m.Family {
	case FamilyDefault:
		return nil
	case FamilyJM:
		if m.Param <= 0 || m.Param > 1 {
			return apperrors.Usagef("jm lambda must be in (0,1], got %v", m.Param)
		}
		return nil
	case FamilyDirichlet:
		if m.Param < 0 {
			return apperrors.Usagef("dir mu must be >= 0, got %v", m.Param)
		}
		return nil
	}
	return apperrors.Usagef("unknown similarity family %q", m.Family)
}

func (m Model) String() string {
	if m.Family == FamilyDefault {
		return string(FamilyDefault)
	}
	return fmt.Sprintf("%s(%s)", m.Family, strconv.FormatFloat(m.Param, 'f', -1, 64))
}

// Hit is one ranked document. Its rank is its 1-based position in the slice
// returned by a Ranker.
type Hit struct {
	DocID string  `json:"id"`
	Score float64 `json:"score"`
}

// Ranker produces at most depth hits for a query, best first.
type Ranker interface {
	Rank(ctx context.Context, query string, model Model, depth int) ([]Hit, error)
}

// RankerFunc adapts a function to the Ranker interface.
type RankerFunc func(ctx context.Context, query string, model Model, depth int) ([]Hit, error)

func (f RankerFunc) Rank(ctx context.Context, query string, model Model, depth int) ([]Hit, error) {
	return f(ctx, query, model, depth)
}

// DocIDs returns the document ids of hits in rank order.
func DocIDs(hits []Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.DocID
	}
	return ids
}
