package benchmark

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/snapshot"
)

var vocabulary = []string{
	"government", "report", "policy", "health", "transport", "funding",
	"environment", "agency", "public", "record", "budget", "program",
}

func syntheticDoc(i, words int) []string {
	terms := make([]string, words)
	for j := range terms {
		terms[j] = vocabulary[(i*7+j*3)%len(vocabulary)]
	}
	return terms
}

func buildPostings(numDocs int) *index.Postings {
	p := index.NewPostings()
	for i := 0; i < numDocs; i++ {
		p.AddDocument(fmt.Sprintf("doc-%d", i), syntheticDoc(i, 50))
	}
	return p
}

func BenchmarkPostingsAddDocument(b *testing.B) {
	for _, preload := range []int{100, 1000, 5000} {
		b.Run(fmt.Sprintf("preload_%d", preload), func(b *testing.B) {
			p := buildPostings(preload)
			terms := syntheticDoc(1, 50)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				p.AddDocument(fmt.Sprintf("bench-%d", i), terms)
			}
		})
	}
}

func BenchmarkSegmentWriteLoad(b *testing.B) {
	p := buildPostings(2000)
	w := segment.NewWriter(b.TempDir())

	b.Run("write", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := w.Write("bench", p); err != nil {
				b.Fatal(err)
			}
		}
	})

	path, err := w.Write("bench", p)
	if err != nil {
		b.Fatal(err)
	}
	b.Run("load", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			r, err := segment.OpenReader(path)
			if err != nil {
				b.Fatal(err)
			}
			if _, err := r.Load(); err != nil {
				b.Fatal(err)
			}
			r.Close()
		}
	})
}

// BenchmarkIndexDirectory measures a full build over an on-disk corpus.
func BenchmarkIndexDirectory(b *testing.B) {
	dir := b.TempDir()
	for i := 0; i < 500; i++ {
		text := ""
		for _, w := range syntheticDoc(i, 200) {
			text += w + " "
		}
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("doc%04d", i)), []byte(text), 0o644); err != nil {
			b.Fatal(err)
		}
	}
	eng := indexer.NewEngine(newTokenizer(b, 100000), snapshot.NewFileStore(b.TempDir(), "bench"), nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.IndexDirectory(context.Background(), dir); err != nil {
			b.Fatal(err)
		}
	}
}
