package mail

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"
)

func TestComposer_Confirmation(t *testing.T) {
	c := Composer{BaseURL: "https://contacts.example.com/", AppName: "Contacts"}
	msg, err := c.Confirmation(context.Background(), "ann", "abc.def.ghi")
	require.NoError(t, err)

	link := "https://contacts.example.com/api/auth/confirm/abc.def.ghi"
	assert.Equal(t, "Confirm your email", msg.Subject)
	assert.Contains(t, msg.Text, link)
	assert.Contains(t, msg.HTML, `href="`+link+`"`)
	assert.Contains(t, msg.HTML, "Welcome, ann!")
}

func TestComposer_PasswordReset(t *testing.T) {
	c := Composer{BaseURL: "http://localhost:8080", AppName: "Contacts"}
	msg, err := c.PasswordReset(context.Background(), "bob", "tok")
	require.NoError(t, err)

	assert.Equal(t, "Reset your password", msg.Subject)
	assert.Contains(t, msg.Text, "http://localhost:8080/reset-password?token=tok")
	assert.Contains(t, msg.HTML, "http://localhost:8080/reset-password?token=tok")
}

func TestComposer_EscapesUsername(t *testing.T) {
	c := Composer{BaseURL: "http://localhost", AppName: "Contacts"}
	msg, err := c.Confirmation(context.Background(), "<script>", "tok")
	require.NoError(t, err)

	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
}

func TestActionEmail(t *testing.T) {
	var buf bytes.Buffer
	err := actionEmail("Hi & welcome", "Intro", "Go", "https://example.com/x?a=1").Render(context.Background(), &buf)
	require.NoError(t, err)

	html := buf.String()
	assert.True(t, strings.HasPrefix(html, "<!doctype html>"))
	assert.Contains(t, html, "<h2>Hi &amp; welcome</h2>")
	assert.Contains(t, html, `<a href="https://example.com/x?a=1">Go</a>`)
	assert.Contains(t, html, "The link expires in 24 hours.")
}

func TestActionEmail_RejectsUnsafeLink(t *testing.T) {
	var buf bytes.Buffer
	err := actionEmail("Hi", "Intro", "Go", "javascript:alert(1)").Render(context.Background(), &buf)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "javascript:")
}

func TestActionEmail_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	assert.ErrorIs(t, actionEmail("Hi", "Intro", "Go", "https://example.com").Render(ctx, &buf), context.Canceled)
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := LogMailer{
		Composer: Composer{BaseURL: "http://localhost:8080", AppName: "Contacts"},
		Logger:   slog.New(slog.NewTextHandler(&buf, nil)),
	}
	require.NoError(t, m.SendConfirmation(context.Background(), "ann@example.com", "ann", "tok"))

	out := buf.String()
	assert.True(t, strings.Contains(out, "to=ann@example.com"), out)
	assert.Contains(t, out, "/api/auth/confirm/tok")
}

func TestSMTPMailer_Build(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{
		Host:     "localhost",
		Port:     2525,
		Username: "user",
		Password: "pass",
		From:     "noreply@example.com",
		FromName: "Contacts",
	}, Composer{BaseURL: "http://localhost", AppName: "Contacts"})
	require.NoError(t, err)

	email, err := m.build("ann@example.com", Message{Subject: "Hi", Text: "plain", HTML: "<p>html</p>"})
	require.NoError(t, err)
	to := email.GetToString()
	require.Len(t, to, 1)
	assert.Contains(t, to[0], "ann@example.com")
	assert.Equal(t, []string{"Hi"}, email.GetGenHeader(gomail.HeaderSubject))

	_, err = m.build("not an address", Message{})
	assert.Error(t, err)
}
