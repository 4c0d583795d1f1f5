// Package mail provides the outbound email senders for verification codes:
// a real SMTP client and a log-only sender for environments without an SMTP
// server.
package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/user/zwitter-go/apperror"
	"github.com/user/zwitter-go/config"
	"github.com/user/zwitter-go/verification"
)

// SMTPSender dispatches verification emails through an SMTP server.
type SMTPSender struct {
	client *gomail.Client
	from   string
}

// NewSMTPSender creates an SMTPSender from the given configuration. Plain
// auth is only configured when a username is set.
func NewSMTPSender(cfg *config.SMTPConfig) (*SMTPSender, error) {
	opts := []gomail.Option{gomail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, apperror.NewTechnicalError(fmt.Errorf("failed to create smtp client for %s: %w", cfg.Host, err))
	}

	return &SMTPSender{client: client, from: cfg.From}, nil
}

// SendVerificationEmail sends the code to the given address.
func (s *SMTPSender) SendVerificationEmail(ctx context.Context, email string, code verification.Code) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return apperror.NewUnexpectedError("EMAIL_SENDER_FROM", err)
	}
	if err := msg.To(email); err != nil {
		return apperror.NewUnexpectedError("EMAIL_SENDER_TO", err)
	}
	msg.Subject("Your verification code")
	msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf(
		"Your email verification code is %s.\n\nIf you did not request this code, you can ignore this message.\n",
		code,
	))

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return apperror.NewUnexpectedError("EMAIL_SENDER_SEND", err)
	}
	return nil
}
