// Package trec reads topic files and writes ranked runs in the TREC
// evaluation format.
package trec

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/errors"
)

const maxLineBytes = 1 << 20

// Topic is one query of a topics file.
type Topic struct {
	ID   string
	Line int
	Plan *parser.QueryPlan
}

// ReadTopics parses "query_id query text..." lines. Blank lines are
// skipped; a line with an id but no text is malformed. Text that sanitizes
// to nothing is kept and simply matches no documents.
func ReadTopics(r io.Reader) ([]Topic, error) {
	var topics []Topic
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cut := strings.IndexFunc(line, unicode.IsSpace)
		if cut < 0 {
			return nil, fmt.Errorf("line %d: query %q has no text: %w", lineNo, line, apperrors.ErrMalformedTopic)
		}
		topics = append(topics, Topic{
			ID:   line[:cut],
			Line: lineNo,
			Plan: parser.Parse(strings.TrimSpace(line[cut:])),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
	}
	return topics, nil
}

// ReadTopicsFile opens path and reads its topics.
func ReadTopicsFile(path string) ([]Topic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening topics file: %w", err)
	}
	defer f.Close()
	topics, err := ReadTopics(f)
	if err != nil {
		return nil, fmt.Errorf("reading topics file %s: %w", path, err)
	}
	return topics, nil
}
