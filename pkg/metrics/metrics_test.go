package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.DocsIndexedTotal.Add(3)
	m.SearchQueriesTotal.WithLabelValues("hit", "smart:lnc").Inc()
	m.SnapshotOpsTotal.WithLabelValues("save", "file", "ok").Inc()

	if got := testutil.ToFloat64(m.DocsIndexedTotal); got != 3 {
		t.Errorf("docs_indexed_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit", "smart:lnc")); got != 1 {
		t.Errorf("search_queries_total = %v, want 1", got)
	}

	// a second, independent registry must accept a fresh set
	New(prometheus.NewRegistry())
}
