package vector

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MockService is an in-memory Service used in tests and in development mode
// where the SQLite driver cannot serve vector search. Relevance is scored by
// substring overlap rather than embeddings, which is deterministic and good
// enough for recency-windowed retrieval over short chat messages.
type MockService struct {
	mu   sync.Mutex
	docs map[string]map[string]mockDoc // collection -> id -> doc
}

type mockDoc struct {
	Document
	sessionID string
}

func NewMockService() *MockService {
	return &MockService{
		docs: map[string]map[string]mockDoc{},
	}
}

func (s *MockService) AddIfAbsent(ctx context.Context, collection, sessionID string, docs []Document) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.docs[collection]
	if !ok {
		byID = map[string]mockDoc{}
		s.docs[collection] = byID
	}

	added := 0
	for _, doc := range docs {
		if doc.Text == "" {
			continue
		}
		if _, ok := byID[doc.ID]; ok {
			continue
		}
		byID[doc.ID] = mockDoc{Document: doc, sessionID: sessionID}
		added++
	}
	return added, nil
}

func (s *MockService) Search(ctx context.Context, query string, limit int, filter Filter) ([]Snippet, error) {
	if query == "" || limit <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := []Snippet{}
	for _, doc := range s.docs[filter.Collection] {
		if filter.SessionID != "" && doc.sessionID != filter.SessionID {
			continue
		}
		if filter.Hot != nil && doc.Hot != *filter.Hot {
			continue
		}
		if filter.MinTimestamp != nil && doc.Timestamp < *filter.MinTimestamp {
			continue
		}
		if filter.MaxTimestamp != nil && doc.Timestamp >= *filter.MaxTimestamp {
			continue
		}
		candidates = append(candidates, Snippet{
			ID:      doc.ID,
			Text:    doc.Text,
			Speaker: doc.Speaker,
			Metadata: map[string]any{
				"timestamp": doc.Timestamp,
				"hot":       doc.Hot,
			},
			Distance: overlapDistance(query, doc.Text),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// overlapDistance maps rune-level overlap to a pseudo distance in [0, 1].
func overlapDistance(query, text string) float64 {
	queryRunes := map[rune]struct{}{}
	for _, r := range strings.ToLower(query) {
		queryRunes[r] = struct{}{}
	}
	if len(queryRunes) == 0 {
		return 1
	}
	hit := 0
	for _, r := range strings.ToLower(text) {
		if _, ok := queryRunes[r]; ok {
			hit++
			delete(queryRunes, r)
		}
	}
	return 1 - float64(hit)/float64(len(queryRunes)+hit)
}

var _ Service = (*MockService)(nil)
