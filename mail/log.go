package mail

import (
	"context"
	"log"

	"github.com/user/zwitter-go/verification"
)

// LogSender writes verification codes to the application log instead of
// sending mail. Used when no SMTP host is configured, which is the expected
// setup during local development.
type LogSender struct{}

// NewLogSender creates a LogSender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// SendVerificationEmail logs the code instead of dispatching it.
func (s *LogSender) SendVerificationEmail(ctx context.Context, email string, code verification.Code) error {
	log.Printf("verification code for %s: %s (no SMTP host configured, not sent)", email, code)
	return nil
}
