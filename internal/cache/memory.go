// Package cache provides domain.SessionCache implementations.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/msomdec/contacts-api/internal/domain"
)

// Memory is an in-process session cache with per-entry expiry.
// It is safe for concurrent use. Expired entries are removed by a background
// sweeper until Close is called.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

type entry struct {
	user    domain.SessionUser
	expires time.Time
}

// NewMemory creates a cache that sweeps expired entries every interval.
func NewMemory(interval time.Duration) *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go m.sweep(interval)
	return m
}

func (m *Memory) Get(_ context.Context, username string) (*domain.SessionUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[username]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, username)
		return nil, domain.ErrCacheMiss
	}
	user := e.user
	return &user, nil
}

func (m *Memory) Put(_ context.Context, username string, user *domain.SessionUser, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[username] = entry{user: *user, expires: m.now().Add(ttl)}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close stops the sweeper and waits for it to exit.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	<-m.done
	return nil
}

func (m *Memory) sweep(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.removeExpired()
		}
	}
}

func (m *Memory) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, key)
		}
	}
}
