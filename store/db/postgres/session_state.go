package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

func (d *DB) GetSessionState(ctx context.Context, sessionID string) ([]byte, bool, error) {
	var payload []byte
	err := d.db.QueryRowContext(ctx, `
		SELECT payload FROM session_state WHERE session_id = $1`,
		sessionID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "failed to get session state")
	}
	return payload, true, nil
}

func (d *DB) UpsertSessionState(ctx context.Context, sessionID string, payload []byte, updatedTs int64) error {
	if _, err := d.db.ExecContext(ctx, `
		INSERT INTO session_state (session_id, payload, updated_ts)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET payload = EXCLUDED.payload, updated_ts = EXCLUDED.updated_ts`,
		sessionID, payload, updatedTs,
	); err != nil {
		return errors.Wrap(err, "failed to upsert session state")
	}
	return nil
}
