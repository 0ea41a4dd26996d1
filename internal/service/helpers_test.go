package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/msomdec/contacts-api/internal/domain"
	"github.com/msomdec/contacts-api/internal/repository/sqlite"
	"github.com/msomdec/contacts-api/internal/service"
)

const testJWTSecret = "test-secret-key-for-unit-tests-0123456789"

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type mail struct {
	kind, to, username, token string
}

// captureMailer records emails instead of sending them.
type captureMailer struct {
	mu   sync.Mutex
	sent []mail
	err  error
}

func (m *captureMailer) SendConfirmation(_ context.Context, to, username, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail{"confirmation", to, username, token})
	return m.err
}

func (m *captureMailer) SendPasswordReset(_ context.Context, to, username, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail{"reset", to, username, token})
	return m.err
}

func (m *captureMailer) last(t *testing.T) mail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("expected an email to be sent")
	}
	return m.sent[len(m.sent)-1]
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// mapCache is a session cache that counts lookups and can be made to fail.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]domain.SessionUser
	hits    int
	misses  int
	failGet error
	failPut error
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]domain.SessionUser)}
}

func (c *mapCache) Get(_ context.Context, username string) (*domain.SessionUser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet != nil {
		return nil, c.failGet
	}
	u, ok := c.entries[username]
	if !ok {
		c.misses++
		return nil, domain.ErrCacheMiss
	}
	c.hits++
	return &u, nil
}

func (c *mapCache) Put(_ context.Context, username string, user *domain.SessionUser, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failPut != nil {
		return c.failPut
	}
	c.entries[username] = *user
	return nil
}

// countingAccounts counts username lookups that reach the account store.
type countingAccounts struct {
	domain.AccountRepository

	mu         sync.Mutex
	byUsername int
}

func (c *countingAccounts) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	c.mu.Lock()
	c.byUsername++
	c.mu.Unlock()
	return c.AccountRepository.GetByUsername(ctx, username)
}

func (c *countingAccounts) usernameLookups() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byUsername
}

type accountFixture struct {
	svc      *service.AccountService
	db       *sqlite.DB
	accounts *countingAccounts
	tokens   *service.TokenIssuer
	mailer   *captureMailer
	cache    *mapCache
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	db := newTestDB(t)
	tokens, err := service.NewTokenIssuer(testJWTSecret, "HS256", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	f := &accountFixture{
		db:       db,
		accounts: &countingAccounts{AccountRepository: db.Accounts()},
		tokens:   tokens,
		mailer:   &captureMailer{},
		cache:    newMapCache(),
	}
	// Use cost 4 for fast tests.
	f.svc = service.NewAccountService(
		f.accounts,
		service.NewPasswordHasher(4),
		tokens,
		f.cache,
		f.mailer,
		service.GravatarProvider{},
		db.FileStore(),
		service.AccountConfig{SessionCacheTTL: time.Minute, AvatarBaseURL: "http://localhost:8080/api/avatars"},
		nil,
	)
	return f
}

// registerConfirmed registers an account and confirms it through the emailed
// token.
func (f *accountFixture) registerConfirmed(t *testing.T, username, email, password string) *domain.Account {
	t.Helper()
	ctx := context.Background()
	acc, err := f.svc.Register(ctx, username, email, password)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := f.svc.ConfirmWithToken(ctx, f.mailer.last(t).token); err != nil {
		t.Fatalf("ConfirmWithToken: %v", err)
	}
	return acc
}

var errBoom = errors.New("boom")
