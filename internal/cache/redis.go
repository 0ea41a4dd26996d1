package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/msomdec/contacts-api/internal/domain"
)

// Redis stores session users as JSON strings under "user:<username>".
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// pingTimeout bounds the startup connectivity check.
const pingTimeout = 2 * time.Second

// DialRedis parses a redis:// URL and builds a client. Only a malformed URL is
// an error: an unreachable server is logged and the client is returned anyway,
// since lookups fall back to the account store until it comes back.
func DialRedis(ctx context.Context, rawURL string, logger *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, session cache degraded", "addr", opts.Addr, "error", err)
	}
	return &Redis{client: client}, nil
}

func key(username string) string {
	return "user:" + username
}

func (r *Redis) Get(ctx context.Context, username string) (*domain.SessionUser, error) {
	raw, err := r.client.Get(ctx, key(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var user domain.SessionUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode cached user: %w", err)
	}
	return &user, nil
}

func (r *Redis) Put(ctx context.Context, username string, user *domain.SessionUser, ttl time.Duration) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode cached user: %w", err)
	}
	if err := r.client.Set(ctx, key(username), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
