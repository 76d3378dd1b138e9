package vector

import (
	"context"
	"fmt"
	"time"

	"github.com/weiwangfds/love-agent/plugin/ai"
	"github.com/weiwangfds/love-agent/store"
)

// Embedder produces embedding vectors for text.
type Embedder interface {
	Embedding(ctx context.Context, text string) ([]float32, error)
}

// StoreService persists and searches embeddings through the store driver.
// It requires a driver with vector support (PostgreSQL + pgvector).
type StoreService struct {
	driver   store.Driver
	embedder Embedder
}

func NewStoreService(driver store.Driver, embedder Embedder) *StoreService {
	return &StoreService{
		driver:   driver,
		embedder: embedder,
	}
}

func (s *StoreService) AddIfAbsent(ctx context.Context, collection, sessionID string, docs []Document) (int, error) {
	added := 0
	for _, doc := range docs {
		if doc.Text == "" {
			continue
		}
		vec, err := s.embedder.Embedding(ctx, doc.Text)
		if err != nil {
			return added, fmt.Errorf("embed document %s: %w", doc.ID, err)
		}
		inserted, err := s.driver.CreateEmbeddingIfAbsent(ctx, &store.Embedding{
			ID:         doc.ID,
			Collection: collection,
			SessionID:  sessionID,
			Speaker:    doc.Speaker,
			Content:    doc.Text,
			Timestamp:  doc.Timestamp,
			Hot:        doc.Hot,
			Vector:     vec,
			CreatedTs:  time.Now().Unix(),
		})
		if err != nil {
			return added, fmt.Errorf("index document %s: %w", doc.ID, err)
		}
		if inserted {
			added++
		}
	}
	return added, nil
}

func (s *StoreService) Search(ctx context.Context, query string, limit int, filter Filter) ([]Snippet, error) {
	if query == "" || limit <= 0 {
		return nil, nil
	}
	vec, err := s.embedder.Embedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	find := &store.EmbeddingFilter{
		Collection:   filter.Collection,
		Hot:          filter.Hot,
		MinTimestamp: filter.MinTimestamp,
		MaxTimestamp: filter.MaxTimestamp,
	}
	if filter.SessionID != "" {
		sessionID := filter.SessionID
		find.SessionID = &sessionID
	}

	matches, err := s.driver.SearchEmbeddings(ctx, vec, limit, find)
	if err != nil {
		return nil, fmt.Errorf("search embeddings: %w", err)
	}

	snippets := make([]Snippet, 0, len(matches))
	for _, m := range matches {
		snippets = append(snippets, Snippet{
			ID:      m.ID,
			Text:    m.Content,
			Speaker: m.Speaker,
			Metadata: map[string]any{
				"timestamp": m.Timestamp,
				"hot":       m.Hot,
			},
			Distance: m.Distance,
		})
	}
	return snippets, nil
}

var _ Service = (*StoreService)(nil)
var _ Embedder = (ai.CompletionService)(nil)
