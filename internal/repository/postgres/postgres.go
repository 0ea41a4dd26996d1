// Package postgres implements the repositories on PostgreSQL through the pgx
// database/sql driver, with goose-managed migrations.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/msomdec/contacts-api/internal/domain"
	"github.com/msomdec/contacts-api/internal/repository/postgres/migrations"
)

// DB wraps a PostgreSQL connection pool and vends the Postgres-backed repositories.
type DB struct {
	SqlDB *sql.DB
}

var _ domain.Store = (*DB)(nil)

// New opens a connection pool for dsn and verifies it with a ping.
func New(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{SqlDB: db}, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate sets up goose with the embedded migrations and runs them.
func (db *DB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db.SqlDB, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.SqlDB.Close()
}

func (db *DB) Accounts() domain.AccountRepository {
	return NewAccountRepository(db.SqlDB)
}

func (db *DB) Contacts() domain.ContactRepository {
	return NewContactRepository(db.SqlDB)
}

func (db *DB) FileStore() domain.FileStore {
	return NewFileStore(db.SqlDB)
}
