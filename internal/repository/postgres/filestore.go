package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/msomdec/contacts-api/internal/dbx"
	"github.com/msomdec/contacts-api/internal/domain"
)

// FileStore implements domain.FileStore with BYTEA rows in stored_files.
type FileStore struct {
	db dbx.DBTX
}

func NewFileStore(db dbx.DBTX) *FileStore {
	return &FileStore{db: db}
}

func (s *FileStore) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stored_files (storage_key, data, size) VALUES ($1, $2, $3)
		 ON CONFLICT (storage_key) DO UPDATE SET data = EXCLUDED.data, size = EXCLUDED.size`,
		key, data, len(data),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM stored_files WHERE storage_key = $1`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return data, nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM stored_files WHERE storage_key = $1`, key); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
