// Package vector provides semantic retrieval over stored chat history and
// facts. The production implementation persists embeddings through the store
// driver (PostgreSQL + pgvector); the in-memory implementation serves
// development with SQLite and tests.
package vector

import (
	"context"

	"github.com/weiwangfds/love-agent/store"
)

// Collection names, shared with the store driver.
const (
	CollectionHistory = store.CollectionHistory
	CollectionFact    = store.CollectionFact
)

// Snippet is a retrieved piece of text with its retrieval distance.
// Lower distance means closer match.
type Snippet struct {
	ID       string
	Text     string
	Speaker  string
	Metadata map[string]any
	Distance float64
}

// Filter restricts a search to a slice of the stored corpus.
type Filter struct {
	Collection   string
	SessionID    string
	Hot          *bool
	MinTimestamp *int64
	MaxTimestamp *int64
}

// Document is a piece of text to index. ID is derived by the caller from the
// content identity so that indexing is idempotent.
type Document struct {
	ID        string
	Text      string
	Speaker   string
	Timestamp int64
	Hot       bool
}

// Service is the vector retrieval contract used by the aggregator and the
// history ingestor.
type Service interface {
	// AddIfAbsent indexes documents into a collection, skipping any whose ID
	// already exists. It reports how many documents were actually indexed.
	AddIfAbsent(ctx context.Context, collection, sessionID string, docs []Document) (int, error)

	// Search returns up to limit snippets matching the query, closest first.
	Search(ctx context.Context, query string, limit int, filter Filter) ([]Snippet, error)
}
