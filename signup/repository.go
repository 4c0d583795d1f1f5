package signup

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/user/zwitter-go/users"
	"github.com/user/zwitter-go/verification"
)

// The signup pipeline consumes its collaborators through the interfaces
// below. Production wiring uses the PostgreSQL user repository, the Redis
// stores and an SMTP sender; tests use the in-memory implementations in
// memory.go. Each repository owns exactly one entity family. All operations
// are fallible through the technical-error channel (store unreachable) in
// addition to whatever domain failures they report.

// UserRepository is the persistent user store.
type UserRepository interface {
	// Create persists a user and its credentials atomically. It reports
	// unique-constraint violations as domain errors EMAIL_ALREADY_TAKEN or
	// USERNAME_ALREADY_TAKEN.
	Create(ctx context.Context, user *users.User, creds *users.Credentials) error
	// Get retrieves a user by id, failing with a not-found error when absent.
	Get(ctx context.Context, id uuid.UUID) (*users.User, error)
	// EmailExists reports whether any user owns the given email.
	EmailExists(ctx context.Context, email string) (bool, error)
	// UsernameExists reports whether any user owns the given username.
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// VerificationCodeRepository stores issued verification codes keyed by email.
// Expiry is the store's responsibility: after ttl elapses the code must read
// as absent. Storing again for the same email replaces the previous code.
type VerificationCodeRepository interface {
	Store(ctx context.Context, email string, code verification.Code, ttl time.Duration) error
	// Matches reports whether the stored, unexpired code for email equals
	// code exactly. An absent or expired entry is a non-match, not an error.
	Matches(ctx context.Context, email string, code verification.Code) (bool, error)
}

// TemporaryUserRepository stages proven email ownership: a short-lived
// binding from an opaque identifier to an email, pending account creation.
type TemporaryUserRepository interface {
	Store(ctx context.Context, id uuid.UUID, email string) error
	// GetEmail returns the email bound to id, failing with the technical
	// not-found error TEMPORARY_USER_NOT_FOUND when no binding exists.
	GetEmail(ctx context.Context, id uuid.UUID) (string, error)
}

// EmailSender dispatches verification codes to their recipients.
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, email string, code verification.Code) error
}
