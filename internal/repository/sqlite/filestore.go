package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/contacts-api/internal/domain"
)

// fileStore implements domain.FileStore using SQLite BLOBs in stored_files.
// Saving an existing key replaces its bytes.
type fileStore struct {
	db *sql.DB
}

func (s *fileStore) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stored_files (storage_key, data, size, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (storage_key) DO UPDATE SET data = excluded.data, size = excluded.size`,
		key, data, len(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save stored file %s: %w", key, err)
	}
	return nil
}

func (s *fileStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM stored_files WHERE storage_key = ?", key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stored file %s: %w", key, err)
	}
	return data, nil
}

// Delete is idempotent; removing a missing key is not an error.
func (s *fileStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM stored_files WHERE storage_key = ?", key); err != nil {
		return fmt.Errorf("delete stored file %s: %w", key, err)
	}
	return nil
}
