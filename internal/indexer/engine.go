// Package indexer builds postings stores from a directory of documents and
// reuses stored snapshots when asked to.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/metrics"
)

// Engine is the build-time pipeline: Token Source into Postings Store.
type Engine struct {
	tok       *tokenizer.Tokenizer
	snapshots snapshot.Store
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewEngine wires the pipeline. snapshots and m may be nil.
func NewEngine(tok *tokenizer.Tokenizer, snapshots snapshot.Store, m *metrics.Metrics) *Engine {
	return &Engine{
		tok:       tok,
		snapshots: snapshots,
		metrics:   m,
		logger:    slog.Default().With("component", "indexer"),
	}
}

// IndexDocument tokenizes text and adds every term to store. It returns the
// number of terms recorded.
func (e *Engine) IndexDocument(store *index.Postings, docID, text string) int {
	terms := e.tok.Tokenize(text)
	store.AddDocument(docID, terms)
	if len(terms) > 0 && e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
	}
	return len(terms)
}

// IndexDirectory walks dir in lexical order and indexes every regular file.
// The document identifier is the file's path relative to dir using forward
// slashes. Files without any token are skipped: the store never holds an
// empty document.
func (e *Engine) IndexDirectory(ctx context.Context, dir string) (*index.Postings, error) {
	start := time.Now()
	store := index.NewPostings()
	var files, skipped, tokens int

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("deriving document id for %s: %w", path, err)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading document %s: %w", path, err)
		}
		docID := tokenizer.Sanitize(filepath.ToSlash(rel))
		n := e.IndexDocument(store, docID, string(content))
		files++
		if n == 0 {
			skipped++
			e.logger.Debug("document has no tokens, skipped", "doc_id", docID)
			return nil
		}
		tokens += n
		if files%1000 == 0 {
			e.logger.Info("indexing progress", "files", files, "terms", store.TermCount())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("indexing directory %s: %w", dir, err)
	}
	if store.DocumentCount() == 0 {
		return nil, fmt.Errorf("indexing directory %s: %w", dir, apperrors.ErrEmptyIndex)
	}

	elapsed := time.Since(start)
	hits, misses, cached := e.tok.CacheStats()
	e.logger.Info("directory indexed",
		"dir", dir,
		"documents", store.DocumentCount(),
		"skipped", skipped,
		"terms", store.TermCount(),
		"tokens", tokens,
		"stem_cache_hits", hits,
		"stem_cache_misses", misses,
		"stem_cache_size", cached,
		"elapsed", elapsed,
	)
	if e.metrics != nil {
		e.metrics.IndexBuildDuration.Observe(elapsed.Seconds())
		e.observe(store)
	}
	return store, nil
}

// LoadOrBuild returns the stored snapshot when useStored is set and one
// exists; otherwise it indexes dir and saves the result. The boolean
// reports whether the store came from the snapshot.
func (e *Engine) LoadOrBuild(ctx context.Context, dir string, useStored bool) (*index.Postings, bool, error) {
	if useStored && e.snapshots != nil {
		store, err := e.snapshots.Load(ctx)
		switch {
		case err == nil:
			e.logger.Info("loaded stored index",
				"location", e.snapshots.Location(),
				"documents", store.DocumentCount(),
				"terms", store.TermCount(),
			)
			if e.metrics != nil {
				e.observe(store)
			}
			return store, true, nil
		case errors.Is(err, apperrors.ErrSnapshotNotFound):
			e.logger.Info("no stored index, building", "location", e.snapshots.Location())
		case errors.Is(err, apperrors.ErrCorruptSnapshot):
			e.logger.Warn("stored index is corrupt, rebuilding", "location", e.snapshots.Location(), "error", err)
		default:
			return nil, false, fmt.Errorf("loading stored index: %w", err)
		}
	}

	store, err := e.IndexDirectory(ctx, dir)
	if err != nil {
		return nil, false, err
	}
	if e.snapshots != nil {
		if err := e.snapshots.Save(ctx, store); err != nil {
			return nil, false, fmt.Errorf("saving index snapshot: %w", err)
		}
		e.logger.Info("index snapshot saved", "location", e.snapshots.Location())
	}
	return store, false, nil
}

func (e *Engine) observe(store *index.Postings) {
	e.metrics.IndexDocuments.Set(float64(store.DocumentCount()))
	e.metrics.IndexTerms.Set(float64(store.TermCount()))
}
