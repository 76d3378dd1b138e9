// Package retrieval layers priority-bucket aggregation and history ingestion
// on top of the vector service.
package retrieval

import (
	"context"
	"log/slog"
	"time"

	"github.com/weiwangfds/love-agent/plugin/ai/vector"
)

// Bucket age windows, measured back from the time of the query.
const (
	hotWindow        = 24 * time.Hour
	validWindow      = 7 * 24 * time.Hour
	backgroundWindow = 30 * 24 * time.Hour
)

// Per-bucket result quotas, in priority order.
const (
	quotaHot        = 4
	quotaValid      = 4
	quotaBackground = 2
	quotaLegacy     = 1
)

// Aggregator retrieves history snippets from four freshness buckets in fixed
// priority order. Results are deduplicated by snippet ID across buckets and
// never re-ranked: a lower-priority bucket may not displace a higher one.
type Aggregator struct {
	service vector.Service

	// now is replaceable in tests.
	now func() time.Time
}

func NewAggregator(service vector.Service) *Aggregator {
	return &Aggregator{
		service: service,
		now:     time.Now,
	}
}

type bucket struct {
	name   string
	quota  int
	filter func(sessionID string, now time.Time) vector.Filter
}

func hotFilter(sessionID string, now time.Time) vector.Filter {
	min := now.Add(-hotWindow).Unix()
	return vector.Filter{
		Collection:   vector.CollectionHistory,
		SessionID:    sessionID,
		MinTimestamp: &min,
	}
}

func validFilter(sessionID string, now time.Time) vector.Filter {
	min := now.Add(-validWindow).Unix()
	return vector.Filter{
		Collection:   vector.CollectionHistory,
		SessionID:    sessionID,
		MinTimestamp: &min,
	}
}

func backgroundFilter(sessionID string, now time.Time) vector.Filter {
	min := now.Add(-backgroundWindow).Unix()
	max := now.Add(-validWindow).Unix()
	return vector.Filter{
		Collection:   vector.CollectionHistory,
		SessionID:    sessionID,
		MinTimestamp: &min,
		MaxTimestamp: &max,
	}
}

func legacyFilter(sessionID string, now time.Time) vector.Filter {
	max := now.Add(-backgroundWindow).Unix()
	return vector.Filter{
		Collection:   vector.CollectionHistory,
		SessionID:    sessionID,
		MaxTimestamp: &max,
	}
}

var buckets = []bucket{
	{name: "hot", quota: quotaHot, filter: hotFilter},
	{name: "valid_7d", quota: quotaValid, filter: validFilter},
	{name: "background_30d", quota: quotaBackground, filter: backgroundFilter},
	{name: "background_legacy", quota: quotaLegacy, filter: legacyFilter},
}

// Retrieve queries each bucket in priority order and returns the merged,
// deduplicated snippet list. A failing bucket contributes nothing; the other
// buckets still produce a result.
func (a *Aggregator) Retrieve(ctx context.Context, sessionID, query string) []vector.Snippet {
	if query == "" {
		return nil
	}

	now := a.now()
	seen := map[string]struct{}{}
	merged := []vector.Snippet{}

	for _, b := range buckets {
		// Over-fetch so that cross-bucket duplicates do not starve the quota.
		fetch := b.quota + len(seen)
		snippets, err := a.service.Search(ctx, query, fetch, b.filter(sessionID, now))
		if err != nil {
			slog.Warn("retrieval bucket failed",
				"bucket", b.name, "session_id", sessionID, "error", err)
			continue
		}
		kept := 0
		for _, snip := range snippets {
			if kept >= b.quota {
				break
			}
			if _, ok := seen[snip.ID]; ok {
				continue
			}
			seen[snip.ID] = struct{}{}
			merged = append(merged, snip)
			kept++
		}
	}
	return merged
}

// RetrieveFacts searches the fact collection for snippets contextual to the
// query. Lessons and facts share the collection; the caller filters by type
// if needed.
func (a *Aggregator) RetrieveFacts(ctx context.Context, sessionID, query string, limit int) []vector.Snippet {
	if query == "" || limit <= 0 {
		return nil
	}
	snippets, err := a.service.Search(ctx, query, limit, vector.Filter{
		Collection: vector.CollectionFact,
		SessionID:  sessionID,
	})
	if err != nil {
		slog.Warn("fact retrieval failed", "session_id", sessionID, "error", err)
		return nil
	}
	return snippets
}
