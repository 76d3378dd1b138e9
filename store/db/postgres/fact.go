package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/weiwangfds/love-agent/store"
)

func (d *DB) CreateFactIfAbsent(ctx context.Context, create *store.Fact) (bool, error) {
	result, err := d.db.ExecContext(ctx, `
		INSERT INTO fact (session_id, content, type, created_ts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, content) DO NOTHING`,
		create.SessionID, create.Content, create.Type, create.CreatedTs,
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to create fact")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get affected rows")
	}
	return affected > 0, nil
}

func (d *DB) ListFacts(ctx context.Context, find *store.FindFact) ([]*store.Fact, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.SessionID != nil {
		where, args = append(where, fmt.Sprintf("session_id = $%d", len(args)+1)), append(args, *find.SessionID)
	}
	if find.Type != nil {
		where, args = append(where, fmt.Sprintf("type = $%d", len(args)+1)), append(args, *find.Type)
	}

	query := fmt.Sprintf(`
		SELECT id, session_id, content, type, created_ts
		FROM fact
		WHERE %s
		ORDER BY created_ts DESC, id DESC`,
		strings.Join(where, " AND "))

	limit := find.Limit
	if limit > 0 {
		if limit > 1000 {
			limit = 1000
		}
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list facts")
	}
	defer rows.Close()

	list := []*store.Fact{}
	for rows.Next() {
		fact := &store.Fact{}
		if err := rows.Scan(&fact.ID, &fact.SessionID, &fact.Content, &fact.Type, &fact.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan fact row")
		}
		list = append(list, fact)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate fact rows")
	}
	return list, nil
}
