// Package engine answers free-text queries against an immutable postings
// store with a weighting scheme.
package engine

import (
	"maps"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/weighting"
)

// Tokenizer turns query text into index terms. It must be the same token
// source the store was built with.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Engine is immutable and safe for concurrent queries.
type Engine struct {
	tok    Tokenizer
	store  *index.Postings
	scheme weighting.Scheme
}

func New(tok Tokenizer, store *index.Postings, scheme weighting.Scheme) *Engine {
	return &Engine{tok: tok, store: store, scheme: scheme}
}

func (e *Engine) Store() *index.Postings { return e.store }

func (e *Engine) Scheme() weighting.Scheme { return e.scheme }

// Vector tokenizes text into a term -> query frequency map.
func (e *Engine) Vector(text string) map[string]int {
	vector := make(map[string]int)
	for _, term := range e.tok.Tokenize(text) {
		vector[term]++
	}
	return vector
}

// Score accumulates Contribution/Norm for every document containing at
// least one vector term. Terms unknown to the store contribute nothing.
// A matched document stays in the table even when its score is zero.
func (e *Engine) Score(vector map[string]int) map[string]float64 {
	scores := make(map[string]float64)
	// fixed term order keeps floating-point sums reproducible
	for _, term := range slices.Sorted(maps.Keys(vector)) {
		queryTF := vector[term]
		for doc, docTF := range e.store.DocumentsFor(term) {
			scores[doc] += e.scheme.Contribution(term, doc, queryTF, docTF) / e.scheme.Norm(doc)
		}
	}
	return scores
}

// RunQuery returns every matching document, best first.
func (e *Engine) RunQuery(text string) []ranker.ScoredDoc {
	return ranker.Rank(e.Score(e.Vector(text)))
}

// TopK returns the k best matches; k <= 0 returns all of them.
func (e *Engine) TopK(text string, k int) []ranker.ScoredDoc {
	return ranker.TopK(e.Score(e.Vector(text)), k)
}
