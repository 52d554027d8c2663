// Package index holds the postings store: two co-indexed mappings,
// term -> (document -> tf) and document -> (term -> tf), built once per
// collection and read-only afterwards.
package index

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"

	apperrors "github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/errors"
)

// Postings is not safe for concurrent mutation. Once building is finished
// it may be shared by any number of readers without locking.
type Postings struct {
	termDocs map[string]map[string]int
	docTerms map[string]map[string]int
}

func NewPostings() *Postings {
	return &Postings{
		termDocs: make(map[string]map[string]int),
		docTerms: make(map[string]map[string]int),
	}
}

// AddOccurrence records one more occurrence of term in doc.
func (p *Postings) AddOccurrence(doc, term string) {
	docs, ok := p.termDocs[term]
	if !ok {
		docs = make(map[string]int)
		p.termDocs[term] = docs
	}
	docs[doc]++

	terms, ok := p.docTerms[doc]
	if !ok {
		terms = make(map[string]int)
		p.docTerms[doc] = terms
	}
	terms[term]++
}

// AddDocument records every term of doc's token stream.
func (p *Postings) AddDocument(doc string, terms []string) {
	for _, term := range terms {
		p.AddOccurrence(doc, term)
	}
}

// Put inserts a complete posting. It is the deserialisation primitive and
// rejects non-positive frequencies and postings that already exist.
func (p *Postings) Put(term, doc string, tf int) error {
	if tf < 1 {
		return fmt.Errorf("posting (%q, %q) has tf %d: %w", term, doc, tf, apperrors.ErrCorruptSnapshot)
	}
	if _, dup := p.termDocs[term][doc]; dup {
		return fmt.Errorf("duplicate posting (%q, %q): %w", term, doc, apperrors.ErrCorruptSnapshot)
	}
	p.addCount(term, doc, tf)
	return nil
}

func (p *Postings) addCount(term, doc string, tf int) {
	if p.termDocs[term] == nil {
		p.termDocs[term] = make(map[string]int)
	}
	if p.docTerms[doc] == nil {
		p.docTerms[doc] = make(map[string]int)
	}
	p.termDocs[term][doc] += tf
	p.docTerms[doc][term] += tf
}

func (p *Postings) DocumentCount() int {
	return len(p.docTerms)
}

func (p *Postings) TermCount() int {
	return len(p.termDocs)
}

// DocumentsFor returns document -> tf for term. An absent term yields an
// empty map, which callers treat as document frequency 0. The map is owned
// by the store and must not be modified.
func (p *Postings) DocumentsFor(term string) map[string]int {
	if docs, ok := p.termDocs[term]; ok {
		return docs
	}
	return map[string]int{}
}

// TermsFor returns term -> tf for doc, or an empty map. The map is owned by
// the store and must not be modified.
func (p *Postings) TermsFor(doc string) map[string]int {
	if terms, ok := p.docTerms[doc]; ok {
		return terms
	}
	return map[string]int{}
}

// Documents returns every document identifier in ascending order.
func (p *Postings) Documents() []string {
	return slices.Sorted(maps.Keys(p.docTerms))
}

// Terms returns every term in ascending order.
func (p *Postings) Terms() []string {
	return slices.Sorted(maps.Keys(p.termDocs))
}

// Entries returns the term-indexed mapping as sorted term entries with
// postings sorted by document.
func (p *Postings) Entries() []TermEntry {
	terms := p.Terms()
	entries := make([]TermEntry, 0, len(terms))
	for _, term := range terms {
		docs := p.termDocs[term]
		postings := make(PostingList, 0, len(docs))
		for _, doc := range slices.Sorted(maps.Keys(docs)) {
			postings = append(postings, Posting{DocID: doc, Frequency: docs[doc]})
		}
		entries = append(entries, TermEntry{Term: term, Postings: postings})
	}
	return entries
}

// FromEntries rebuilds a store from term entries. The document-indexed
// mapping is derived, so both directions agree by construction.
func FromEntries(entries []TermEntry) (*Postings, error) {
	p := NewPostings()
	for _, entry := range entries {
		if len(entry.Postings) == 0 {
			return nil, fmt.Errorf("term %q has no postings: %w", entry.Term, apperrors.ErrCorruptSnapshot)
		}
		for _, posting := range entry.Postings {
			if err := p.Put(entry.Term, posting.DocID, posting.Frequency); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

// Validate checks the store invariants: every posting is mirrored in the
// other direction with the same tf, tf >= 1, and no term or document is
// empty.
func (p *Postings) Validate() error {
	for term, docs := range p.termDocs {
		if len(docs) == 0 {
			return fmt.Errorf("term %q has no documents", term)
		}
		for doc, tf := range docs {
			if tf < 1 {
				return fmt.Errorf("posting (%q, %q) has tf %d", term, doc, tf)
			}
			if mirror := p.docTerms[doc][term]; mirror != tf {
				return fmt.Errorf("posting (%q, %q): term side tf %d, document side tf %d", term, doc, tf, mirror)
			}
		}
	}
	for doc, terms := range p.docTerms {
		if len(terms) == 0 {
			return fmt.Errorf("document %q has no terms", doc)
		}
		for term, tf := range terms {
			if _, ok := p.termDocs[term][doc]; !ok {
				return fmt.Errorf("posting (%q, %q) with tf %d missing on term side", term, doc, tf)
			}
		}
	}
	return nil
}

// Equal reports whether both stores hold exactly the same postings.
func (p *Postings) Equal(other *Postings) bool {
	if p.TermCount() != other.TermCount() || p.DocumentCount() != other.DocumentCount() {
		return false
	}
	for term, docs := range p.termDocs {
		if !maps.Equal(docs, other.termDocs[term]) {
			return false
		}
	}
	for doc, terms := range p.docTerms {
		if !maps.Equal(terms, other.docTerms[doc]) {
			return false
		}
	}
	return true
}

// Fingerprint is a digest of the postings content. Two stores have the same
// fingerprint exactly when they hold the same postings, whichever process
// built or loaded them.
func (p *Postings) Fingerprint() string {
	h := sha256.New()
	var buf [binary.MaxVarintLen64]byte
	writeString := func(s string) {
		h.Write(buf[:binary.PutUvarint(buf[:], uint64(len(s)))])
		h.Write([]byte(s))
	}
	for _, term := range p.Terms() {
		docs := p.termDocs[term]
		writeString(term)
		h.Write(buf[:binary.PutUvarint(buf[:], uint64(len(docs)))])
		for _, doc := range slices.Sorted(maps.Keys(docs)) {
			writeString(doc)
			h.Write(buf[:binary.PutUvarint(buf[:], uint64(docs[doc]))])
		}
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}
