package cache

import (
	"context"
	"errors"
	"time"

	"github.com/msomdec/contacts-api/internal/domain"
	"github.com/msomdec/contacts-api/internal/metrics"
)

// Noop never stores anything; every Get is a miss.
type Noop struct{}

func (Noop) Get(context.Context, string) (*domain.SessionUser, error) {
	return nil, domain.ErrCacheMiss
}

func (Noop) Put(context.Context, string, *domain.SessionUser, time.Duration) error {
	return nil
}

func (Noop) Close() error { return nil }

// Instrumented counts lookups of the wrapped cache by outcome.
type Instrumented struct {
	domain.SessionCache
}

func (c Instrumented) Get(ctx context.Context, username string) (*domain.SessionUser, error) {
	user, err := c.SessionCache.Get(ctx, username)
	switch {
	case err == nil:
		metrics.RecordCacheLookup(metrics.CacheHit)
	case errors.Is(err, domain.ErrCacheMiss):
		metrics.RecordCacheLookup(metrics.CacheMiss)
	default:
		metrics.RecordCacheLookup(metrics.CacheError)
	}
	return user, err
}
