package reload

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/metrics"
)

type recordingSwapper struct {
	engines []*engine.Engine
}

func (s *recordingSwapper) Swap(eng *engine.Engine) uint64 {
	s.engines = append(s.engines, eng)
	return uint64(len(s.engines) + 1)
}

type countingInvalidator struct {
	calls int
	err   error
}

func (c *countingInvalidator) Invalidate(context.Context) (int64, error) {
	c.calls++
	return 0, c.err
}

func setup(t *testing.T) (*snapshot.FileStore, *tokenizer.Tokenizer) {
	t.Helper()
	tok, err := tokenizer.New(64)
	if err != nil {
		t.Fatal(err)
	}
	return snapshot.NewFileStore(t.TempDir(), "postings"), tok
}

func publish(t *testing.T, store *snapshot.FileStore, tok *tokenizer.Tokenizer, docs map[string]string) []byte {
	t.Helper()
	p := index.NewPostings()
	for id, text := range docs {
		p.AddDocument(id, tok.Tokenize(text))
	}
	if err := store.Save(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(snapshot.Published{
		Name:      "postings",
		Backend:   store.Backend(),
		Location:  store.Location(),
		Documents: p.DocumentCount(),
		Terms:     p.TermCount(),
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestHandleSwapsAndInvalidates(t *testing.T) {
	store, tok := setup(t)
	swapper := &recordingSwapper{}
	inv := &countingInvalidator{}
	m := metrics.New(prometheus.NewRegistry())
	r := New(store, tok, config.WeightingConfig{Scheme: config.SchemeSMART, SMART: "ltc"}, swapper, inv, m)

	msg := publish(t, store, tok, map[string]string{"doc1": "cat dog", "doc2": "dog"})
	if err := r.Handle(context.Background(), nil, msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(swapper.engines) != 1 {
		t.Fatalf("swapped %d engines, want 1", len(swapper.engines))
	}
	eng := swapper.engines[0]
	if eng.Scheme().Name() != "smart:ltc" || eng.Store().DocumentCount() != 2 {
		t.Errorf("engine scheme=%s docs=%d", eng.Scheme().Name(), eng.Store().DocumentCount())
	}
	if got := eng.RunQuery("cat"); len(got) != 1 || got[0].DocID != "doc1" {
		t.Errorf("RunQuery(cat) = %v", got)
	}
	if inv.calls != 1 {
		t.Errorf("invalidations = %d, want 1", inv.calls)
	}
	if got := testutil.ToFloat64(m.IndexReloadsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("reloads ok = %v", got)
	}
}

func TestHandleSkipsForeignAndBrokenEvents(t *testing.T) {
	store, tok := setup(t)
	swapper := &recordingSwapper{}
	r := New(store, tok, config.WeightingConfig{Scheme: config.SchemeTF}, swapper, nil, nil)

	foreign, _ := json.Marshal(snapshot.Published{Backend: "postgres", Location: "postgres:index_snapshots/x"})
	for _, msg := range [][]byte{[]byte("{not json"), foreign} {
		if err := r.Handle(context.Background(), nil, msg); err != nil {
			t.Errorf("Handle(%s) = %v, want nil", msg, err)
		}
	}
	if len(swapper.engines) != 0 {
		t.Errorf("swapped on a skipped event")
	}
}

func TestReloadFailureKeepsCurrentEngine(t *testing.T) {
	store, tok := setup(t)
	swapper := &recordingSwapper{}
	m := metrics.New(prometheus.NewRegistry())
	r := New(store, tok, config.WeightingConfig{Scheme: config.SchemeTF}, swapper, nil, m)

	err := r.Reload(context.Background(), snapshot.Published{Backend: "file", Location: store.Location()})
	if !errors.Is(err, apperrors.ErrSnapshotNotFound) {
		t.Errorf("err = %v, want ErrSnapshotNotFound", err)
	}
	if len(swapper.engines) != 0 {
		t.Error("swapped after a failed load")
	}
	if got := testutil.ToFloat64(m.IndexReloadsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("reloads error = %v", got)
	}
}

func TestInvalidationFailureIsNotFatal(t *testing.T) {
	store, tok := setup(t)
	swapper := &recordingSwapper{}
	r := New(store, tok, config.WeightingConfig{Scheme: config.SchemeTF}, swapper, &countingInvalidator{err: errors.New("redis down")}, nil)
	msg := publish(t, store, tok, map[string]string{"doc1": "cat"})
	if err := r.Handle(context.Background(), nil, msg); err != nil {
		t.Errorf("Handle: %v", err)
	}
	if len(swapper.engines) != 1 {
		t.Error("engine not swapped")
	}
}
