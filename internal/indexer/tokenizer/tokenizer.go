// Package tokenizer turns raw text into index terms. Text is lower-cased,
// split on whitespace, and the stem of every surface token is appended
// after all surface tokens, so N words yield 2N terms and either form can
// match at query time. Stems are memoized in a bounded LRU owned by the
// Tokenizer.
package tokenizer

import (
	"fmt"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kljensen/snowball/english"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultCacheSize bounds the stem cache when the caller has no preference.
const DefaultCacheSize = 100000

// Tokenizer is safe for concurrent use; the stem cache is internally
// synchronised.
type Tokenizer struct {
	stems  *lru.Cache[string, string]
	hits   atomic.Int64
	misses atomic.Int64
}

// New returns a Tokenizer whose stem cache holds at most cacheSize entries.
func New(cacheSize int) (*Tokenizer, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating stem cache: %w", err)
	}
	return &Tokenizer{stems: cache}, nil
}

// Tokenize returns the surface tokens of text followed by their stems.
// Invalid UTF-8 sequences become U+FFFD, so every term is valid UTF-8.
func (t *Tokenizer) Tokenize(text string) []string {
	// cases.Caser keeps state between calls, so one per call.
	lower := cases.Lower(language.Und).String(Sanitize(text))
	words := strings.Fields(lower)
	terms := make([]string, len(words), 2*len(words))
	copy(terms, words)
	for _, w := range words {
		terms = append(terms, t.Stem(w))
	}
	return terms
}

// Sanitize replaces each run of invalid UTF-8 bytes with U+FFFD.
func Sanitize(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// Stem returns the English stem of an already lower-cased word.
func (t *Tokenizer) Stem(word string) string {
	if s, ok := t.stems.Get(word); ok {
		t.hits.Add(1)
		return s
	}
	t.misses.Add(1)
	s := english.Stem(word, true)
	t.stems.Add(word, s)
	return s
}

// CacheStats reports stem cache hits, misses and current size.
func (t *Tokenizer) CacheStats() (hits, misses int64, size int) {
	return t.hits.Load(), t.misses.Load(), t.stems.Len()
}
