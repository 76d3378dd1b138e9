package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/weiwangfds/love-agent/store"
)

func (d *DB) CreateFactIfAbsent(ctx context.Context, create *store.Fact) (bool, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	stmt := `
		INSERT INTO fact (session_id, content, type, created_ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id, content) DO NOTHING
	`
	result, err := d.db.ExecContext(ctx, stmt, create.SessionID, create.Content, create.Type, create.CreatedTs)
	if err != nil {
		return false, fmt.Errorf("failed to create fact: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

func (d *DB) ListFacts(ctx context.Context, find *store.FindFact) ([]*store.Fact, error) {
	if find == nil {
		return nil, fmt.Errorf("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}

	if find.SessionID != nil {
		where, args = append(where, "session_id = ?"), append(args, *find.SessionID)
	}
	if find.Type != nil {
		where, args = append(where, "type = ?"), append(args, *find.Type)
	}

	query := `SELECT id, session_id, content, type, created_ts
		FROM fact WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC`

	limit := find.Limit
	if limit > 0 {
		if limit > 1000 {
			limit = 1000
		}
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list facts: %w", err)
	}
	defer rows.Close()

	list := []*store.Fact{}
	for rows.Next() {
		var fact store.Fact
		if err := rows.Scan(&fact.ID, &fact.SessionID, &fact.Content, &fact.Type, &fact.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan fact: %w", err)
		}
		list = append(list, &fact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate facts: %w", err)
	}
	return list, nil
}
