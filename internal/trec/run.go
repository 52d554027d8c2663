package trec

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/ranker"
)

// DefaultRunTag labels the system in the last column of a run line.
const DefaultRunTag = "MY_IR_SYSTEM"

// FormatScore renders a score the way evaluation tooling has always seen
// it: the shortest decimal that round-trips, ".0" on integral values and
// exponent form below 1e-4 or from 1e16 up.
func FormatScore(score float64) string {
	switch {
	case math.IsNaN(score):
		return "nan"
	case math.IsInf(score, 1):
		return "inf"
	case math.IsInf(score, -1):
		return "-inf"
	}
	sci := strconv.FormatFloat(score, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err != nil {
		// FormatFloat always emits a valid exponent
		panic(err)
	}
	if exp < -4 || exp >= 16 {
		return sci
	}
	s := strconv.FormatFloat(score, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// FormatLine renders one "query_id Q0 document_id rank score tag" line
// without the trailing newline. rank is zero-based.
func FormatLine(queryID string, rank int, doc ranker.ScoredDoc, tag string) string {
	return fmt.Sprintf("%s Q0 %s %d %s %s", queryID, doc.DocID, rank, FormatScore(doc.Score), tag)
}

// WriteRun writes one line per ranked document in the given order.
func WriteRun(w io.Writer, queryID string, results []ranker.ScoredDoc, tag string) error {
	for rank, doc := range results {
		if _, err := io.WriteString(w, FormatLine(queryID, rank, doc, tag)+"\n"); err != nil {
			return fmt.Errorf("writing run for query %s: %w", queryID, err)
		}
	}
	return nil
}
