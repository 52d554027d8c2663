package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventCacheHit   EventType = "cache_hit"
	EventZeroResult EventType = "zero_result"
)

// SearchEvent describes one answered query. It is published to the
// search-events topic keyed by scheme.
type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	Words      []string  `json:"words"`
	Scheme     string    `json:"scheme"`
	Generation uint64    `json:"generation"`
	TotalHits  int       `json:"total_hits"`
	Returned   int       `json:"returned"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
}

// Classify sets Type from the outcome fields.
func (e *SearchEvent) Classify() {
	switch {
	case e.TotalHits == 0:
		e.Type = EventZeroResult
	case e.CacheHit:
		e.Type = EventCacheHit
	default:
		e.Type = EventSearch
	}
}
