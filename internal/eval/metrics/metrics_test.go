package metrics

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/testset"
)

func rel(ids ...string) testset.Relevant {
	r := testset.Relevant{}
	for _, id := range ids {
		r[id] = struct{}{}
	}
	return r
}

func TestComputeWorkedExample(t *testing.T) {
	row, err := Compute(4, 5, rel("d2", "d5"), []string{"d1", "d2", "d3", "d4", "d5"})
	require.NoError(t, err)
	assert.Equal(t, 4, row.Ordinal)
	assert.InDelta(t, 0.4, row.Precision, 1e-12)
	assert.InDelta(t, 1.0, row.Recall, 1e-12)
	assert.InDelta(t, 0.5, row.ReciprocalRank, 1e-12)
	assert.InDelta(t, 0.45, row.AveragePrecision, 1e-12)
}

func TestCutTruncatesRanking(t *testing.T) {
	ranking := []string{"d1", "d2", "d3", "d4", "d5"}
	r := rel("d2", "d5")
	assert.InDelta(t, 1.0/3, PrecisionAt(3, r, ranking), 1e-12)
	assert.InDelta(t, 0.5, RecallAt(3, r, ranking), 1e-12)
	assert.InDelta(t, 0.25, AveragePrecisionAt(3, r, ranking), 1e-12)
}

func TestShortRankingCountsMissingPositionsAsMisses(t *testing.T) {
	assert.InDelta(t, 0.1, PrecisionAt(10, rel("a"), []string{"a"}), 1e-12)
}

func TestNoRelevantDocuments(t *testing.T) {
	row, err := Compute(1, 10, rel(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, Row{Ordinal: 1}, row)
}

func TestReciprocalRankOutsideCut(t *testing.T) {
	assert.Equal(t, 0.0, ReciprocalRankAt(2, rel("c"), []string{"a", "b", "c"}))
}

func TestReciprocalRankNeverRisesAsFirstHitMovesDown(t *testing.T) {
	const cut = 10
	prev := 2.0
	for pos := 0; pos < cut; pos++ {
		ranking := make([]string, cut)
		for i := range ranking {
			ranking[i] = fmt.Sprintf("n%d", i)
		}
		ranking[pos] = "hit"
		rr := ReciprocalRankAt(cut, rel("hit"), ranking)
		assert.LessOrEqual(t, rr, prev, "position %d", pos+1)
		assert.Equal(t, pos == 0, rr == 1.0, "position %d", pos+1)
		prev = rr
	}
	assert.Equal(t, 0.0, ReciprocalRankAt(cut, rel("hit"), []string{"a", "b"}))
}

func TestMeasuresStayWithinBounds(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	pool := []string{"d0", "d1", "d2", "d3", "d4", "d5", "d6", "d7", "d8", "d9"}
	for i := 0; i < 2000; i++ {
		cut := 1 + r.IntN(12)
		ranking := make([]string, r.IntN(16))
		for j := range ranking {
			ranking[j] = pool[r.IntN(len(pool))]
		}
		relevant := rel(pool[r.IntN(len(pool))])
		for _, d := range pool {
			if r.IntN(4) == 0 {
				relevant[d] = struct{}{}
			}
		}

		row, err := Compute(1, cut, relevant, ranking)
		require.NoError(t, err)
		for _, m := range Metrics {
			v := row.Value(m)
			if v < 0 || v > 1 {
				t.Fatalf("%s = %v out of [0,1] for cut %d, relevant %v, ranking %v", m, v, cut, relevant, ranking)
			}
		}
	}
}

func TestDuplicateDocumentCountsOnce(t *testing.T) {
	row, err := Compute(1, 4, rel("d1", "d2"), []string{"d1", "d1", "d1", "d1"})
	require.NoError(t, err)
	assert.Equal(t, 0.25, row.Precision)
	assert.Equal(t, 0.5, row.Recall)
	assert.Equal(t, 0.5, row.AveragePrecision)
}

func TestComputeRejectsNonPositiveCut(t *testing.T) {
	_, err := Compute(1, 0, rel("a"), []string{"a"})
	require.Error(t, err)
	_, err = Of(Precision, -1, rel("a"), []string{"a"})
	require.Error(t, err)
}

func TestOfMatchesCompute(t *testing.T) {
	ranking := []string{"x", "a", "y", "b"}
	r := rel("a", "b", "c")
	row, err := Compute(1, 4, r, ranking)
	require.NoError(t, err)
	for _, m := range Metrics {
		v, err := Of(m, 4, r, ranking)
		require.NoError(t, err)
		assert.Equal(t, row.Value(m), v, string(m))
	}
}

func TestMean(t *testing.T) {
	assert.Equal(t, 1.0, Mean([]float64{0, 0, 1}))
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, Mean([]float64{0, 0}))
	assert.InDelta(t, 0.3, Mean([]float64{0.2, 0, 0.4}), 1e-12)
}

func TestMetricNames(t *testing.T) {
	m, err := ParseMetric("map")
	require.NoError(t, err)
	assert.Equal(t, AveragePrecision, m)
	assert.Equal(t, "MAP@10", m.Label(10))
	assert.Equal(t, "map10", m.Token(10))
	assert.Equal(t, "P@5", Precision.Label(5))
	assert.Equal(t, "r20", Recall.Token(20))
	assert.Equal(t, "Recall@20", Recall.Label(20))
	assert.Equal(t, "MRR", ReciprocalRank.Label(10))
	assert.Equal(t, "mrr", ReciprocalRank.Token(10))

	_, err = ParseMetric("ndcg")
	require.Error(t, err)
}

func TestColumn(t *testing.T) {
	rows := []Row{{Ordinal: 1, Recall: 0.5}, {Ordinal: 2, Recall: 0.25}}
	assert.Equal(t, []float64{0.5, 0.25}, Column(rows, Recall))
}
