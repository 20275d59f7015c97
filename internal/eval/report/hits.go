package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval/evaluate"
)

// WriteHits lists the ranked documents of every query, flagging the
// relevant ones.
func WriteHits(w io.Writer, res *evaluate.Result) error {
	bw := bufio.NewWriter(w)
	for _, q := range res.Queries {
		fmt.Fprintf(bw, "Results for query %d: %s\n", q.Topic.Query.Ordinal, q.Topic.Query.Text)
		for i, hit := range q.Hits {
			fmt.Fprintf(bw, "%d. DocID: %s. Score=%s.", i+1, hit.DocID, FormatValue(hit.Score))
			if q.Topic.Relevant.Contains(hit.DocID) {
				bw.WriteString(" RELEVANT")
			}
			bw.WriteByte('\n')
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
