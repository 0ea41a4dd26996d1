package mail

import (
	"context"
	"log/slog"
)

// LogMailer writes emails to the log instead of sending them. It is meant
// for local development, where the links can be copied from the output.
type LogMailer struct {
	Composer Composer
	Logger   *slog.Logger
}

func (m LogMailer) SendConfirmation(ctx context.Context, to, username, token string) error {
	msg, err := m.Composer.Confirmation(ctx, username, token)
	if err != nil {
		return err
	}
	m.log(ctx, to, msg)
	return nil
}

func (m LogMailer) SendPasswordReset(ctx context.Context, to, username, token string) error {
	msg, err := m.Composer.PasswordReset(ctx, username, token)
	if err != nil {
		return err
	}
	m.log(ctx, to, msg)
	return nil
}

func (m LogMailer) log(ctx context.Context, to string, msg Message) {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "email", "to", to, "subject", msg.Subject, "body", msg.Text)
}
