package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/msomdec/contacts-api/internal/domain"
	"github.com/msomdec/contacts-api/internal/repository/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection and vends the SQLite-backed repositories.
type DB struct {
	SqlDB *sql.DB
}

var _ domain.Store = (*DB)(nil)

// New opens a SQLite database at the given path and configures it for use.
// It enables WAL mode and foreign keys.
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// A single writer connection serializes access; transactions hold it.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{SqlDB: db}, nil
}

// Migrate applies the embedded SQLite migrations.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := migrations.Run(ctx, db.SqlDB)
	return err
}

func (db *DB) Close() error {
	return db.SqlDB.Close()
}

func (db *DB) Accounts() domain.AccountRepository {
	return NewAccountRepository(db)
}

func (db *DB) Contacts() domain.ContactRepository {
	return NewContactRepository(db)
}

func (db *DB) FileStore() domain.FileStore {
	return &fileStore{db: db.SqlDB}
}
