package ranker

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer/index"
)

// BenchmarkRank measures scoring and sorting per similarity for different
// posting-list sizes.
func BenchmarkRank(b *testing.B) {
	sims := []Similarity{BM25{}, JelinekMercer{Lambda: 0.5}, Dirichlet{Mu: 1000}}
	for _, numDocs := range []int{100, 1000, 10000} {
		pl := make(index.PostingList, numDocs)
		for i := range pl {
			pl[i] = index.Posting{DocID: fmt.Sprintf("doc-%d", i), Frequency: (i % 10) + 1}
		}
		postings := map[string]index.PostingList{"search": pl}
		params := RankParams{
			TotalDocs:    int64(numDocs * 2),
			TotalTokens:  int64(numDocs * 300),
			AvgDocLength: 150,
		}
		getDocInfo := func(docID string) DocInfo {
			return DocInfo{DocLength: 100 + len(docID)*10}
		}
		for _, sim := range sims {
			b.Run(fmt.Sprintf("%s/docs_%d", sim.Name(), numDocs), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					Rank([]string{"search"}, postings, params, sim, getDocInfo, 100)
				}
			})
		}
	}
}

// BenchmarkRankMultiTerm measures ranking as the query grows.
func BenchmarkRankMultiTerm(b *testing.B) {
	for _, tc := range []int{1, 3, 5, 10} {
		b.Run(fmt.Sprintf("terms_%d", tc), func(b *testing.B) {
			postings := make(map[string]index.PostingList)
			terms := make([]string, tc)
			for t := range tc {
				terms[t] = fmt.Sprintf("term%d", t)
				pl := make(index.PostingList, 500)
				for i := range pl {
					pl[i] = index.Posting{DocID: fmt.Sprintf("doc-%d", i), Frequency: (i % 5) + 1}
				}
				postings[terms[t]] = pl
			}
			params := RankParams{TotalDocs: 5000, TotalTokens: 1_000_000, AvgDocLength: 200}
			getDocInfo := func(string) DocInfo { return DocInfo{DocLength: 180} }

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				Rank(terms, postings, params, Dirichlet{Mu: 2000}, getDocInfo, 100)
			}
		})
	}
}
