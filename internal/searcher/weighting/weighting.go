// Package weighting implements the similarity functions used to rank
// documents against a query: a raw term-frequency cosine and the SMART
// family of TF/DF/normalization combinations.
package weighting

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/errors"
)

// Store is the read side of a postings store needed to precompute norms
// and term statistics. *index.Postings satisfies it.
type Store interface {
	DocumentCount() int
	Documents() []string
	Terms() []string
	TermsFor(doc string) map[string]int
	DocumentsFor(term string) map[string]int
}

// Scheme scores one (term, document) pair. A document's score for a query
// is the sum of Contribution over the query terms it contains, divided by
// Norm(doc).
//
// Implementations are immutable after construction and safe for
// concurrent use. Norm panics for a document the store does not hold.
type Scheme interface {
	Name() string
	Norm(doc string) float64
	Contribution(term, doc string, queryTF, docTF int) float64
}

// New builds the scheme selected by cfg over store. Every norm and term
// statistic is computed here, so store must not change afterwards.
func New(store Store, cfg config.WeightingConfig) (Scheme, error) {
	switch cfg.Scheme {
	case config.SchemeTF:
		return NewTFCosine(store), nil
	case config.SchemeSMART:
		code, err := ParseSMART(cfg.SMART)
		if err != nil {
			return nil, err
		}
		return NewSMART(store, code), nil
	default:
		return nil, fmt.Errorf("weighting scheme %q: %w", cfg.Scheme, apperrors.ErrUnknownMode)
	}
}

func computeNorms(store Store, norm func(terms map[string]int) float64) map[string]float64 {
	norms := make(map[string]float64, store.DocumentCount())
	for _, doc := range store.Documents() {
		norms[doc] = norm(store.TermsFor(doc))
	}
	return norms
}

func lookupNorm(norms map[string]float64, doc string) float64 {
	n, ok := norms[doc]
	if !ok {
		panic(fmt.Sprintf("weighting: no norm for document %q", doc))
	}
	return n
}
