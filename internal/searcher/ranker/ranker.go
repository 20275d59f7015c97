package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer/index"
)

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// RankParams carries the collection statistics shared by every term.
type RankParams struct {
	TotalDocs    int64
	TotalTokens  int64
	AvgDocLength float64
}

type DocInfo struct {
	DocLength int
}

// Rank scores the union of the documents matching any query term. terms may
// repeat; each occurrence adds its contribution again. Equal scores are
// ordered by document id.
func Rank(
	terms []string,
	postingsPerTerm map[string]index.PostingList,
	params RankParams,
	sim Similarity,
	getDocInfo func(docID string) DocInfo,
	limit int,
) []ScoredDoc {
	scores := make(map[string]float64)
	for _, term := range terms {
		postings := postingsPerTerm[term]
		if len(postings) == 0 {
			continue
		}
		stats := TermStats{
			DocFreq:       int64(len(postings)),
			TotalTermFreq: postings.TotalFrequency(),
		}
		for _, posting := range postings {
			info := getDocInfo(posting.DocID)
			scores[posting.DocID] += sim.Score(float64(posting.Frequency), float64(info.DocLength), stats, params)
		}
	}
	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		result = append(result, ScoredDoc{
			DocID: docID,
			Score: score,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
