package benchmark

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/weighting"
)

func BenchmarkQueryParse(b *testing.B) {
	queries := []struct {
		name  string
		query string
	}{
		{"simple", "public health"},
		{"punctuated", "health-care (funding), 2024!"},
		{"long", "government report policy health transport funding environment agency public record budget program"},
	}
	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = parser.Parse(q.query)
			}
		})
	}
}

func BenchmarkSchemeConstruction(b *testing.B) {
	p := buildPostings(5000)
	b.Run("tf-cosine", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = weighting.NewTFCosine(p)
		}
	})
	for _, code := range []string{"lnc", "ltc", "Lpb"} {
		c, err := weighting.ParseSMART(code)
		if err != nil {
			b.Fatal(err)
		}
		b.Run("smart_"+code, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = weighting.NewSMART(p, c)
			}
		})
	}
}

func BenchmarkEngineQuery(b *testing.B) {
	for _, numDocs := range []int{1000, 10000} {
		p := buildPostings(numDocs)
		code, err := weighting.ParseSMART("ltc")
		if err != nil {
			b.Fatal(err)
		}
		eng := engine.New(newTokenizer(b, 100000), p, weighting.NewSMART(p, code))

		b.Run(fmt.Sprintf("run_all_docs_%d", numDocs), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = eng.RunQuery("public health funding")
			}
		})
		b.Run(fmt.Sprintf("top10_docs_%d", numDocs), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = eng.TopK("public health funding", 10)
			}
		})
	}
}

func BenchmarkRankTopK(b *testing.B) {
	for _, numDocs := range []int{100, 1000, 10000} {
		scores := make(map[string]float64, numDocs)
		for i := 0; i < numDocs; i++ {
			scores[fmt.Sprintf("doc-%d", i)] = float64((i*7919)%1000) / 10
		}
		b.Run(fmt.Sprintf("rank_%d", numDocs), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = ranker.Rank(scores)
			}
		})
		b.Run(fmt.Sprintf("top10_%d", numDocs), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = ranker.TopK(scores, 10)
			}
		})
	}
}
