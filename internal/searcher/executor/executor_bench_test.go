package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/config"
)

var benchVocabulary = []string{
	"radio", "wave", "propagation", "transistor", "amplifier", "circuit",
	"magnetic", "core", "memory", "digital", "computer", "filter",
	"microwave", "dielectric", "constant", "ionosphere", "antenna", "noise",
}

// BenchmarkExecutorRank ranks a three-term query against indexes of
// increasing size, flushed into several segments.
func BenchmarkExecutorRank(b *testing.B) {
	for _, numDocs := range []int{1000, 10000} {
		cfg := config.Default().Index
		cfg.DataDir = b.TempDir()
		cfg.SegmentMaxSize = 256 << 10
		a, err := tokenizer.New(tokenizer.Standard, "")
		if err != nil {
			b.Fatal(err)
		}
		w, err := indexer.Create(cfg, indexer.ModeCreate, a)
		if err != nil {
			b.Fatal(err)
		}
		for i := range numDocs {
			text := ""
			for j := range 12 {
				text += benchVocabulary[(i*7+j*5)%len(benchVocabulary)] + " "
			}
			if err := w.IndexDocument(fmt.Sprintf("%d", i), text); err != nil {
				b.Fatal(err)
			}
		}
		if err := w.Close(); err != nil {
			b.Fatal(err)
		}
		r, err := indexer.Open(cfg.DataDir)
		if err != nil {
			b.Fatal(err)
		}
		exec := New(r)

		for _, m := range []eval.Model{
			{Family: eval.FamilyDefault},
			{Family: eval.FamilyJM, Param: 0.3},
			{Family: eval.FamilyDirichlet, Param: 2000},
		} {
			b.Run(fmt.Sprintf("%s/docs_%d", m, numDocs), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if _, err := exec.Rank(context.Background(), "radio wave propagation", m, 100); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
		r.Close()
	}
}
