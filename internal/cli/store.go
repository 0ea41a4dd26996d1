package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/msomdec/contacts-api/internal/config"
	"github.com/msomdec/contacts-api/internal/domain"
	"github.com/msomdec/contacts-api/internal/repository/postgres"
	"github.com/msomdec/contacts-api/internal/repository/sqlite"
)

// openStore connects to the configured database. The returned *sql.DB is
// the same pool the store uses, exposed for health checks.
func openStore(ctx context.Context, cfg config.DBConfig) (domain.Store, *sql.DB, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.New(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return db, db.SqlDB, nil
	case "postgres":
		db, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return db, db.SqlDB, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
