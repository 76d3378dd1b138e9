package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/weiwangfds/love-agent/store"
)

func (d *DB) CreateEmbeddingIfAbsent(ctx context.Context, create *store.Embedding) (bool, error) {
	result, err := d.db.ExecContext(ctx, `
		INSERT INTO embedding (id, collection, session_id, speaker, content, ts, hot, vector, created_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		create.ID, create.Collection, create.SessionID, create.Speaker,
		create.Content, create.Timestamp, create.Hot,
		pgvector.NewVector(create.Vector), create.CreatedTs,
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to create embedding")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get affected rows")
	}
	return affected > 0, nil
}

func (d *DB) SearchEmbeddings(ctx context.Context, vector []float32, limit int, filter *store.EmbeddingFilter) ([]*store.EmbeddingMatch, error) {
	where, args := []string{"vector IS NOT NULL"}, []any{}

	if filter != nil {
		if filter.Collection != "" {
			where, args = append(where, fmt.Sprintf("collection = $%d", len(args)+1)), append(args, filter.Collection)
		}
		if filter.SessionID != nil {
			where, args = append(where, fmt.Sprintf("session_id = $%d", len(args)+1)), append(args, *filter.SessionID)
		}
		if filter.Hot != nil {
			where, args = append(where, fmt.Sprintf("hot = $%d", len(args)+1)), append(args, *filter.Hot)
		}
		if filter.MinTimestamp != nil {
			where, args = append(where, fmt.Sprintf("ts >= $%d", len(args)+1)), append(args, *filter.MinTimestamp)
		}
		if filter.MaxTimestamp != nil {
			where, args = append(where, fmt.Sprintf("ts < $%d", len(args)+1)), append(args, *filter.MaxTimestamp)
		}
	}

	if limit <= 0 {
		limit = 10
	}

	args = append(args, pgvector.NewVector(vector))
	query := fmt.Sprintf(`
		SELECT id, collection, session_id, speaker, content, ts, hot, created_ts,
			vector <=> $%d AS distance
		FROM embedding
		WHERE %s
		ORDER BY distance ASC
		LIMIT %d`,
		len(args), strings.Join(where, " AND "), limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search embeddings")
	}
	defer rows.Close()

	matches := []*store.EmbeddingMatch{}
	for rows.Next() {
		match := &store.EmbeddingMatch{}
		if err := rows.Scan(
			&match.ID, &match.Collection, &match.SessionID, &match.Speaker,
			&match.Content, &match.Timestamp, &match.Hot, &match.CreatedTs,
			&match.Distance,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan embedding row")
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate embedding rows")
	}
	return matches, nil
}
