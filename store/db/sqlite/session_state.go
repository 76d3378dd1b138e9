package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

func (d *DB) GetSessionState(ctx context.Context, sessionID string) ([]byte, bool, error) {
	var payload []byte
	err := d.db.QueryRowContext(ctx,
		`SELECT payload FROM session_state WHERE session_id = ?`, sessionID,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get session state")
	}
	return payload, true, nil
}

func (d *DB) UpsertSessionState(ctx context.Context, sessionID string, payload []byte, updatedTs int64) error {
	stmt := `
		INSERT INTO session_state (session_id, payload, updated_ts)
		VALUES (?, ?, ?)
		ON CONFLICT (session_id)
		DO UPDATE SET payload = excluded.payload, updated_ts = excluded.updated_ts
	`
	if _, err := d.db.ExecContext(ctx, stmt, sessionID, payload, updatedTs); err != nil {
		return errors.Wrap(err, "failed to upsert session state")
	}
	return nil
}
