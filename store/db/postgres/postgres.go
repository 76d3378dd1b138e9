package postgres

import (
	"context"
	"database/sql"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/weiwangfds/love-agent/internal/profile"
	"github.com/weiwangfds/love-agent/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL database specified by its DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// Single-user assistant: keep the pool small.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{
		db:      db,
		profile: profile,
	}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS session_state (
	session_id TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	updated_ts BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS fact (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	content TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT 'user_fact',
	created_ts BIGINT NOT NULL DEFAULT 0,
	UNIQUE(session_id, content)
);

CREATE INDEX IF NOT EXISTS idx_fact_session_type ON fact (session_id, type);

CREATE TABLE IF NOT EXISTS embedding (
	id TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	session_id TEXT NOT NULL,
	speaker TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	ts BIGINT NOT NULL DEFAULT 0,
	hot BOOLEAN NOT NULL DEFAULT FALSE,
	vector vector(1024),
	created_ts BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_embedding_collection ON embedding (collection, session_id);
`

func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate postgres schema")
	}
	return nil
}
