package store

// Embedding collections.
const (
	CollectionHistory = "history_embeddings"
	CollectionFact    = "fact_embeddings"
)

// Embedding is a stored text embedding. ID is computed by the caller from the
// content identity, which makes inserts idempotent.
type Embedding struct {
	ID         string
	Collection string
	SessionID  string
	Speaker    string
	Content    string
	Timestamp  int64
	Hot        bool
	Vector     []float32
	CreatedTs  int64
}

// EmbeddingFilter restricts a similarity search.
type EmbeddingFilter struct {
	Collection   string
	SessionID    *string
	Hot          *bool
	MinTimestamp *int64
	MaxTimestamp *int64
}

// EmbeddingMatch is a similarity search result with its distance.
type EmbeddingMatch struct {
	Embedding
	Distance float64
}
