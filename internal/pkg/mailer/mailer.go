// Package mailer sends transactional account mail. The rest of the system
// only depends on the Sender interface; deployments without SMTP run the
// no-op implementation.
package mailer

import (
	"context"
	"fmt"

	"github.com/iseelabs/isee/internal/config"
	"github.com/iseelabs/isee/internal/pkg/logger"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type Sender interface {
	// SendVerification mails the account-verification link to a new user.
	SendVerification(ctx context.Context, email, username, verifyLink string) error
}

// NewSender returns an SMTP sender, or the no-op sender when SMTP is not
// configured.
func NewSender(cfg *config.SMTPConfig) (Sender, error) {
	if cfg.Host == "" {
		logger.Warn("SMTP not configured, verification mail disabled")
		return NoopSender{}, nil
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("mailer: failed to create SMTP client: %w", err)
	}
	return &smtpSender{client: client, from: cfg.From}, nil
}

type smtpSender struct {
	client *mail.Client
	from   string
}

var _ Sender = (*smtpSender)(nil)

func (s *smtpSender) SendVerification(ctx context.Context, email, username, verifyLink string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("mailer: invalid sender address: %w", err)
	}
	if err := msg.To(email); err != nil {
		return fmt.Errorf("mailer: invalid recipient address: %w", err)
	}
	msg.Subject("Verify your account")
	msg.SetBodyString(mail.TypeTextHTML, fmt.Sprintf(`
		<h1>Welcome to iSee, %s!</h1>
		<p>Please verify your email by clicking the link below:</p>
		<a href="%s">Verify Email</a>
	`, username, verifyLink))

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mailer: failed to send verification mail: %w", err)
	}
	logger.Info("Verification mail sent", zap.String("email", email))
	return nil
}

// NoopSender drops all mail.
type NoopSender struct{}

var _ Sender = NoopSender{}

func (NoopSender) SendVerification(context.Context, string, string, string) error {
	return nil
}
