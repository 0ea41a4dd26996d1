package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPMailer sends rendered emails through an SMTP relay.
type SMTPMailer struct {
	cfg      SMTPConfig
	composer Composer
	client   *gomail.Client
}

// NewSMTPMailer creates a mailer for cfg. Authentication is enabled when a
// username is configured; TLS is used when the server offers it.
func NewSMTPMailer(cfg SMTPConfig, composer Composer) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPMailer{cfg: cfg, composer: composer, client: client}, nil
}

func (m *SMTPMailer) SendConfirmation(ctx context.Context, to, username, token string) error {
	msg, err := m.composer.Confirmation(ctx, username, token)
	if err != nil {
		return err
	}
	return m.send(ctx, to, msg)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, username, token string) error {
	msg, err := m.composer.PasswordReset(ctx, username, token)
	if err != nil {
		return err
	}
	return m.send(ctx, to, msg)
}

func (m *SMTPMailer) send(ctx context.Context, to string, msg Message) error {
	email, err := m.build(to, msg)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, email); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}

func (m *SMTPMailer) build(to string, msg Message) (*gomail.Msg, error) {
	email := gomail.NewMsg()
	if err := email.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
		return nil, fmt.Errorf("set from address: %w", err)
	}
	if err := email.To(to); err != nil {
		return nil, fmt.Errorf("set to address: %w", err)
	}
	email.Subject(msg.Subject)
	email.SetBodyString(gomail.TypeTextPlain, msg.Text)
	email.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	return email, nil
}
