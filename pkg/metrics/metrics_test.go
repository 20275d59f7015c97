package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsesPrivateRegistry(t *testing.T) {
	// Two runs in one process must not collide on registration.
	a := New()
	b := New()

	a.RankingsTotal.WithLabelValues("training", "ok").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.RankingsTotal.WithLabelValues("training", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RankingsTotal.WithLabelValues("training", "ok")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.CandidateMean.WithLabelValues("jm", "MAP", FormatCandidate(0.3)).Set(0.25)
	m.DocsIndexedTotal.Add(3)

	path := filepath.Join(t.TempDir(), "npleval.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `npleval_candidate_mean{candidate="0.3",family="jm",metric="MAP"} 0.25`)
	assert.Contains(t, string(data), "npleval_docs_indexed_total 3")
}
