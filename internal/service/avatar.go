package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/msomdec/contacts-api/internal/domain"
)

// AvatarProvider resolves a default avatar URL for a new account.
type AvatarProvider interface {
	AvatarURL(ctx context.Context, email string) (string, error)
}

// GravatarProvider builds Gravatar image URLs from an email address.
type GravatarProvider struct {
	BaseURL string // defaults to https://www.gravatar.com/avatar/
	Default string // fallback image style, e.g. "identicon"
}

func (g GravatarProvider) AvatarURL(_ context.Context, email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", fmt.Errorf("%w: email is required for gravatar", domain.ErrInvalidInput)
	}
	base := g.BaseURL
	if base == "" {
		base = "https://www.gravatar.com/avatar/"
	}
	sum := md5.Sum([]byte(normalized))
	u := base + hex.EncodeToString(sum[:])
	if g.Default != "" {
		u += "?d=" + url.QueryEscape(g.Default)
	}
	return u, nil
}
