package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer/tokenizer"
)

func analyze(t testing.TB, text string) []tokenizer.Token {
	a, err := tokenizer.New(tokenizer.Standard, "")
	require.NoError(t, err)
	return a.Tokenize(text)
}

func TestMemoryIndexSearch(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument("2", analyze(t, "solar cells solar"))
	mi.AddDocument("1", analyze(t, "solar wind"))

	postings := mi.Search("solar")
	require.Len(t, postings, 2)
	assert.Equal(t, "1", postings[0].DocID)
	assert.Equal(t, 1, postings[0].Frequency)
	assert.Equal(t, "2", postings[1].DocID)
	assert.Equal(t, 2, postings[1].Frequency)
	assert.Equal(t, []int{0, 2}, postings[1].Positions)
	assert.Equal(t, int64(3), postings.TotalFrequency())
	assert.Nil(t, mi.Search("missing"))
}

func TestMemoryIndexReplacesDocument(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument("1", analyze(t, "old words"))
	mi.AddDocument("1", analyze(t, "new text here"))

	assert.Nil(t, mi.Search("old"))
	assert.Len(t, mi.Search("new"), 1)
	assert.Equal(t, 1, mi.DocCount())

	_, docs := mi.Snapshot()
	assert.Equal(t, []DocEntry{{DocID: "1", Length: 3}}, docs)
}

func TestMemoryIndexSnapshotSorted(t *testing.T) {
	mi := NewMemoryIndex()
	mi.AddDocument("b", analyze(t, "zeta alpha"))
	mi.AddDocument("a", analyze(t, "alpha"))

	entries, docs := mi.Snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, "alpha", entries[0].Term)
	assert.Equal(t, "a", entries[0].Postings[0].DocID)
	assert.Equal(t, "zeta", entries[1].Term)
	assert.Equal(t, "a", docs[0].DocID)

	mi.Reset()
	assert.Zero(t, mi.DocCount())
	assert.Zero(t, mi.Size())
}

// BenchmarkMemoryIndexAdd measures per-document insert throughput into the
// in-memory inverted index.
func BenchmarkMemoryIndexAdd(b *testing.B) {
	mi := NewMemoryIndex()
	tokens := analyze(b, "this is a benchmark document with several terms for testing the indexing performance")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mi.AddDocument(fmt.Sprintf("doc-%d", i), tokens)
	}
}

// BenchmarkMemoryIndexSnapshot measures the cost of snapshotting the index
// before a segment flush.
func BenchmarkMemoryIndexSnapshot(b *testing.B) {
	mi := NewMemoryIndex()
	tokens := analyze(b, "testing snapshot performance with multiple terms and documents")
	for i := 0; i < 5000; i++ {
		mi.AddDocument(fmt.Sprintf("doc-%d", i), tokens)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mi.Snapshot()
	}
}
