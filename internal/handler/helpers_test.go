package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/msomdec/contacts-api/internal/cache"
	"github.com/msomdec/contacts-api/internal/domain"
	"github.com/msomdec/contacts-api/internal/handler"
	"github.com/msomdec/contacts-api/internal/metrics"
	"github.com/msomdec/contacts-api/internal/repository/sqlite"
	"github.com/msomdec/contacts-api/internal/service"
)

const testJWTSecret = "test-secret-for-handler-tests-0123456789"

// captureMailer keeps the last token sent to each address.
type captureMailer struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *captureMailer) SendConfirmation(_ context.Context, to, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[to] = token
	return nil
}

func (m *captureMailer) SendPasswordReset(_ context.Context, to, _, token string) error {
	return m.SendConfirmation(context.Background(), to, "", token)
}

func (m *captureMailer) token(t *testing.T, to string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[to]
	if !ok {
		t.Fatalf("no email sent to %s", to)
	}
	return tok
}

type testApp struct {
	srv      *httptest.Server
	db       *sqlite.DB
	accounts *service.AccountService
	hasher   *service.PasswordHasher
	mailer   *captureMailer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := service.NewTokenIssuer(testJWTSecret, "HS256", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	sessions := cache.NewMemory(time.Minute)
	t.Cleanup(func() { sessions.Close() })

	app := &testApp{
		db:     db,
		hasher: service.NewPasswordHasher(4),
		mailer: &captureMailer{tokens: make(map[string]string)},
	}
	app.accounts = service.NewAccountService(
		db.Accounts(), app.hasher, tokens, sessions, app.mailer,
		nil, db.FileStore(),
		service.AccountConfig{SessionCacheTTL: time.Minute, AvatarBaseURL: "http://example.test/api/avatars"},
		nil,
	)
	contacts := service.NewContactService(db.Contacts(), nil)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, app.accounts, contacts, db.SqlDB, metrics.NewRegistry())
	app.srv = httptest.NewServer(handler.Instrument(handler.SecurityHeaders(mux)))
	t.Cleanup(app.srv.Close)
	return app
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (a *testApp) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// signup registers, confirms and logs in a user, returning its token.
func (a *testApp) signup(t *testing.T, username, email string) string {
	t.Helper()
	if code := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username, "email": email, "password": "secret1",
	}, nil); code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", code)
	}
	if code := a.do(t, http.MethodGet, "/api/auth/confirm/"+a.mailer.token(t, email), "", nil, nil); code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d", code)
	}
	var login struct {
		AccessToken string `json:"access_token"`
	}
	if code := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username, "password": "secret1",
	}, &login); code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", code)
	}
	return login.AccessToken
}

// adminToken creates a confirmed admin directly in the store and logs in.
func (a *testApp) adminToken(t *testing.T) string {
	t.Helper()
	hash, err := a.hasher.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	admin := &domain.Account{Username: "root", Email: "root@example.com", PasswordHash: hash, Role: domain.RoleAdmin, Confirmed: true}
	if err := a.db.Accounts().Create(context.Background(), admin); err != nil {
		t.Fatalf("Create admin: %v", err)
	}
	_, token, err := a.accounts.Authenticate(context.Background(), "root", "secret1")
	if err != nil {
		t.Fatalf("Authenticate admin: %v", err)
	}
	return token
}
