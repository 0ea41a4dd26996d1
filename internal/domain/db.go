package domain

import "context"

// Database defines lifecycle operations for the underlying database.
// Each implementation (SQLite, Postgres) owns its own migration
// files and strategy, ensuring the entire backend is swappable.
type Database interface {
	Migrate(ctx context.Context) error
	Close() error
}

// Store is a migrated database that vends the repositories the services need.
type Store interface {
	Database
	Accounts() AccountRepository
	Contacts() ContactRepository
	FileStore() FileStore
}
