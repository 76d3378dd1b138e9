package db

import (
	"github.com/pkg/errors"

	"github.com/weiwangfds/love-agent/internal/profile"
	"github.com/weiwangfds/love-agent/store"
	"github.com/weiwangfds/love-agent/store/db/postgres"
	"github.com/weiwangfds/love-agent/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// PostgreSQL: full support, including vector retrieval via pgvector.
// SQLite: session/fact persistence only; vector retrieval is served by the
// in-memory store instead (development/testing).
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
