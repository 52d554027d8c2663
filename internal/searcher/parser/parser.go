// Package parser reduces raw query text to the words that are scored.
// Punctuation is stripped, leaving runs of letters, digits and underscores,
// and single-character words are dropped.
package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// wordPattern matches Unicode word characters.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

type QueryPlan struct {
	RawQuery string
	Words    []string
	// Text is Words joined by single spaces; it is what gets tokenized.
	Text string
}

// Empty reports whether nothing in the query survived sanitizing.
func (p *QueryPlan) Empty() bool { return len(p.Words) == 0 }

func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		RawQuery: query,
		Words:    make([]string, 0),
	}
	for _, word := range wordPattern.FindAllString(query, -1) {
		if utf8.RuneCountInString(word) > 1 {
			plan.Words = append(plan.Words, word)
		}
	}
	plan.Text = strings.Join(plan.Words, " ")
	return plan
}
