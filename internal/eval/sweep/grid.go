package sweep

import (
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval"
	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
)

// JMGrid is the interpolation weights tried for Jelinek-Mercer. The first
// point stands for the engine default similarity.
var JMGrid = []float64{0.0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}

// DirichletGrid is the prior masses tried for Dirichlet smoothing.
var DirichletGrid = []float64{0, 200, 400, 600, 800, 1000, 1500, 2000, 2500, 3000, 4000}

// Grid returns a copy of the candidates of family in sweep order.
func Grid(family eval.Family) ([]float64, error) {
	var g []float64
	switch family {
	case eval.FamilyJM:
		g = JMGrid
	case eval.FamilyDirichlet:
		g = DirichletGrid
	default:
		return nil, apperrors.Usagef("family %q has no parameter to sweep", family)
	}
	return append([]float64(nil), g...), nil
}

// ModelFor maps a candidate to the model ranked with it. Jelinek-Mercer is
// undefined at lambda 0, so that point ranks with the default similarity.
func ModelFor(family eval.Family, candidate float64) eval.Model {
	if family == eval.FamilyJM && candidate == 0 {
		return eval.Model{Family: eval.FamilyDefault}
	}
	return eval.Model{Family: family, Param: candidate}
}
