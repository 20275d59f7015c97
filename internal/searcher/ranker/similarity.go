package ranker

import (
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval"
)

const (
	k1 = 1.2
	b  = 0.75
)

// TermStats are the per-term collection statistics.
type TermStats struct {
	DocFreq       int64
	TotalTermFreq int64
}

// Similarity scores one term occurrence in one document.
type Similarity interface {
	Score(termFreq, docLength float64, term TermStats, params RankParams) float64
	Name() string
}

// ForModel returns the similarity implementing m.
func ForModel(m eval.Model) (Similarity, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	switch m.Family {
	case eval.FamilyJM:
		return JelinekMercer{Lambda: m.Param}, nil
	case eval.FamilyDirichlet:
		return Dirichlet{Mu: m.Param}, nil
	default:
		return BM25{}, nil
	}
}

// BM25 is the default similarity.
type BM25 struct{}

func (BM25) Name() string { return "bm25" }

func (BM25) Score(termFreq, docLength float64, term TermStats, params RankParams) float64 {
	return computeIDF(params.TotalDocs, term.DocFreq) * computeTFNorm(termFreq, docLength, params.AvgDocLength)
}

func computeIDF(totalDocs int64, docFreq int64) float64 {
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(1 + numerator/denominator)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}

// collectionProbability is the smoothed probability of the term in the
// whole collection.
func collectionProbability(term TermStats, params RankParams) float64 {
	return (float64(term.TotalTermFreq) + 1) / (float64(params.TotalTokens) + 1)
}

// JelinekMercer interpolates the document and collection language models
// with weight Lambda on the collection.
type JelinekMercer struct {
	Lambda float64
}

func (s JelinekMercer) Name() string { return fmt.Sprintf("lm-jm(%g)", s.Lambda) }

func (s JelinekMercer) Score(termFreq, docLength float64, term TermStats, params RankParams) float64 {
	if docLength == 0 {
		return 0
	}
	pc := collectionProbability(term, params)
	return math.Log(1 + ((1-s.Lambda)*termFreq/docLength)/(s.Lambda*pc))
}

// Dirichlet smooths with a Dirichlet prior of mass Mu. Negative scores are
// clamped to zero; Mu = 0 reduces to the maximum-likelihood ratio.
type Dirichlet struct {
	Mu float64
}

func (s Dirichlet) Name() string { return fmt.Sprintf("lm-dir(%g)", s.Mu) }

func (s Dirichlet) Score(termFreq, docLength float64, term TermStats, params RankParams) float64 {
	if docLength+s.Mu == 0 {
		return 0
	}
	pc := collectionProbability(term, params)
	score := math.Log((termFreq + s.Mu*pc) / ((docLength + s.Mu) * pc))
	return math.Max(0, score)
}
