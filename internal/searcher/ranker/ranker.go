// Package ranker orders accumulated document scores. Every ordering here
// is total: higher score first, ties broken by ascending document id, so
// identical inputs always produce identical rankings.
package ranker

import (
	"container/heap"
	"slices"
)

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Before reports whether a ranks ahead of b.
func Before(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

func compare(a, b ScoredDoc) int {
	switch {
	case Before(a, b):
		return -1
	case Before(b, a):
		return 1
	default:
		return 0
	}
}

// Sort orders docs in place.
func Sort(docs []ScoredDoc) {
	slices.SortFunc(docs, compare)
}

// Rank returns every scored document in rank order.
func Rank(scores map[string]float64) []ScoredDoc {
	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		result = append(result, ScoredDoc{DocID: docID, Score: score})
	}
	Sort(result)
	return result
}

// TopK returns the k best documents in rank order without sorting the
// whole score table. k <= 0 means no limit.
func TopK(scores map[string]float64, k int) []ScoredDoc {
	if k <= 0 || k >= len(scores) {
		return Rank(scores)
	}
	h := make(worstFirst, 0, k+1)
	for docID, score := range scores {
		doc := ScoredDoc{DocID: docID, Score: score}
		if h.Len() < k {
			heap.Push(&h, doc)
			continue
		}
		if Before(doc, h[0]) {
			h[0] = doc
			heap.Fix(&h, 0)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(ScoredDoc)
	}
	return result
}

// Truncate returns the first k ranked documents. k <= 0 means no limit.
func Truncate(docs []ScoredDoc, k int) []ScoredDoc {
	if k > 0 && len(docs) > k {
		return docs[:k]
	}
	return docs
}

// worstFirst is a min-heap keeping the lowest-ranked document at the root.
type worstFirst []ScoredDoc

func (h worstFirst) Len() int { return len(h) }

func (h worstFirst) Less(i, j int) bool { return Before(h[j], h[i]) }

func (h worstFirst) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
