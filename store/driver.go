package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that the store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates the schema if it does not exist.
	Migrate(ctx context.Context) error

	// SessionState persistence. The payload is an opaque JSON record owned by
	// the Store; drivers never interpret it.
	GetSessionState(ctx context.Context, sessionID string) (payload []byte, found bool, err error)
	UpsertSessionState(ctx context.Context, sessionID string, payload []byte, updatedTs int64) error

	// Fact model related methods. CreateFactIfAbsent reports whether a row was
	// actually inserted (false when the same text already exists).
	CreateFactIfAbsent(ctx context.Context, create *Fact) (bool, error)
	ListFacts(ctx context.Context, find *FindFact) ([]*Fact, error)

	// Embedding model related methods. Vector search requires PostgreSQL with
	// the pgvector extension; the SQLite driver rejects these calls.
	CreateEmbeddingIfAbsent(ctx context.Context, create *Embedding) (bool, error)
	SearchEmbeddings(ctx context.Context, vector []float32, limit int, filter *EmbeddingFilter) ([]*EmbeddingMatch, error)
}
