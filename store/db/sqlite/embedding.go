package sqlite

import (
	"context"
	"errors"

	"github.com/weiwangfds/love-agent/store"
)

// Vector retrieval is NOT supported on SQLite. SQLite is intended for
// development/testing; the in-memory vector store serves retrieval there.
// Use PostgreSQL with pgvector for production retrieval.

// ErrSQLiteVectorNotSupported is returned when vector features are requested on SQLite.
var ErrSQLiteVectorNotSupported = errors.New("vector retrieval is not supported on SQLite; use PostgreSQL with pgvector")

func (d *DB) CreateEmbeddingIfAbsent(ctx context.Context, create *store.Embedding) (bool, error) {
	return false, ErrSQLiteVectorNotSupported
}

func (d *DB) SearchEmbeddings(ctx context.Context, vector []float32, limit int, filter *store.EmbeddingFilter) ([]*store.EmbeddingMatch, error) {
	return nil, ErrSQLiteVectorNotSupported
}
