package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/msomdec/contacts-api/internal/domain"
)

// Token scopes keep session tokens and emailed action tokens apart.
const (
	ScopeSession = "session"
	ScopeAction  = "action"
)

// ActionTokenTTL is the lifetime of confirmation and password reset tokens.
const ActionTokenTTL = 24 * time.Hour

type tokenClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies JWTs with a shared HMAC secret.
type TokenIssuer struct {
	secret     []byte
	method     jwt.SigningMethod
	sessionTTL time.Duration
	now        func() time.Time
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithTokenClock overrides the issuer's time source.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) { t.now = now }
}

// NewTokenIssuer creates an issuer for the named HMAC algorithm (HS256,
// HS384 or HS512). sessionTTL is the default session token lifetime.
func NewTokenIssuer(secret, algorithm string, sessionTTL time.Duration, opts ...TokenOption) (*TokenIssuer, error) {
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if sessionTTL <= 0 {
		return nil, errors.New("session token TTL must be positive")
	}
	t := &TokenIssuer{
		secret:     []byte(secret),
		method:     method,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// IssueSessionToken signs a session token for username. A non-positive ttl
// selects the configured default.
func (t *TokenIssuer) IssueSessionToken(username string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = t.sessionTTL
	}
	return t.issue(ScopeSession, username, ttl)
}

// IssueActionToken signs a 24h token for email, used for confirmation and
// password reset links.
func (t *TokenIssuer) IssueActionToken(email string) (string, error) {
	return t.issue(ScopeAction, email, ActionTokenTTL)
}

// ParseSessionToken returns the username of a valid session token.
func (t *TokenIssuer) ParseSessionToken(token string) (string, error) {
	return t.parse(token, ScopeSession)
}

// ParseActionToken returns the email of a valid action token.
func (t *TokenIssuer) ParseActionToken(token string) (string, error) {
	return t.parse(token, ScopeAction)
}

func (t *TokenIssuer) issue(scope, subject string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := tokenClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(t.method, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *TokenIssuer) parse(tokenString, scope string) (string, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{t.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return "", domain.ErrInvalidToken
	}
	if claims.Scope != scope || claims.Subject == "" {
		return "", domain.ErrInvalidToken
	}
	return claims.Subject, nil
}
