package weighting

import "math"

// TFCosine weights a term by its raw frequency in both query and document
// and normalizes by the document vector's Euclidean length.
type TFCosine struct {
	norms map[string]float64
}

func NewTFCosine(store Store) *TFCosine {
	return &TFCosine{norms: computeNorms(store, euclidean)}
}

func (s *TFCosine) Name() string { return "tf-cosine" }

func (s *TFCosine) Norm(doc string) float64 { return lookupNorm(s.norms, doc) }

func (s *TFCosine) Contribution(_, _ string, queryTF, docTF int) float64 {
	return float64(queryTF) * float64(docTF)
}

func euclidean(terms map[string]int) float64 {
	var sum float64
	for _, tf := range terms {
		sum += float64(tf) * float64(tf)
	}
	return math.Sqrt(sum)
}
