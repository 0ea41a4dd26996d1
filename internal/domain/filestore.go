package domain

import "context"

// FileStore abstracts raw file byte storage.
// Implementations keep BLOBs in the database or objects in S3.
type FileStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
