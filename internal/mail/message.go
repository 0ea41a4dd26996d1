package mail

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/a-h/templ"
)

// Message is a rendered email ready for a transport.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Composer renders account emails with links under the public base URL.
type Composer struct {
	BaseURL string
	AppName string
}

func (c Composer) confirmLink(token string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/api/auth/confirm/" + url.PathEscape(token)
}

func (c Composer) resetLink(token string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

// Confirmation renders the email asking username to confirm their address.
func (c Composer) Confirmation(ctx context.Context, username, token string) (Message, error) {
	link := c.confirmLink(token)
	return c.render(ctx, "Confirm your email", actionEmail(
		"Welcome, "+username+"!",
		"Please confirm your email address to activate your "+c.AppName+" account.",
		"Confirm email",
		link,
	), fmt.Sprintf("Welcome, %s!\n\nConfirm your email address to activate your %s account:\n%s\n\nThe link expires in 24 hours.\n",
		username, c.AppName, link))
}

// PasswordReset renders the email carrying a password reset link.
func (c Composer) PasswordReset(ctx context.Context, username, token string) (Message, error) {
	link := c.resetLink(token)
	return c.render(ctx, "Reset your password", actionEmail(
		"Hello, "+username,
		"We received a request to reset your "+c.AppName+" password. If it was not you, ignore this email.",
		"Reset password",
		link,
	), fmt.Sprintf("Hello, %s\n\nReset your %s password here:\n%s\n\nThe link expires in 24 hours. If you did not ask for a reset, ignore this email.\n",
		username, c.AppName, link))
}

func (c Composer) render(ctx context.Context, subject string, body templ.Component, text string) (Message, error) {
	var buf bytes.Buffer
	if err := body.Render(ctx, &buf); err != nil {
		return Message{}, fmt.Errorf("render %q: %w", subject, err)
	}
	return Message{Subject: subject, Text: text, HTML: buf.String()}, nil
}
