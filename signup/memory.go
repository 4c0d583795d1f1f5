package signup

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/zwitter-go/apperror"
	"github.com/user/zwitter-go/users"
	"github.com/user/zwitter-go/verification"
)

// In-memory repository implementations. They mirror the behavior of the
// production adapters closely enough to run the whole pipeline against them:
// the user store enforces the same uniqueness rules the database constraints
// do, and the code store honors TTL expiry. All of them take a mutex since
// repositories must tolerate concurrent in-flight requests.

// MemoryUserRepository is a map-backed UserRepository.
type MemoryUserRepository struct {
	mu        sync.RWMutex
	byID      map[uuid.UUID]users.User
	creds     map[uuid.UUID]users.Credentials
	emails    map[string]uuid.UUID
	usernames map[string]uuid.UUID
}

// NewMemoryUserRepository creates an empty in-memory user store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:      make(map[uuid.UUID]users.User),
		creds:     make(map[uuid.UUID]users.Credentials),
		emails:    make(map[string]uuid.UUID),
		usernames: make(map[string]uuid.UUID),
	}
}

// Create stores the user and credentials together, rejecting duplicates the
// way the database unique constraints would.
func (r *MemoryUserRepository) Create(ctx context.Context, user *users.User, creds *users.Credentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.emails[user.Email]; taken {
		return apperror.NewDomainError("EMAIL_ALREADY_TAKEN")
	}
	if _, taken := r.usernames[user.Username]; taken {
		return apperror.NewDomainError("USERNAME_ALREADY_TAKEN")
	}

	stored := *user
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.byID[stored.ID] = stored
	r.creds[creds.UserID] = *creds
	r.emails[stored.Email] = stored.ID
	r.usernames[stored.Username] = stored.ID
	return nil
}

// Get retrieves a user by id.
func (r *MemoryUserRepository) Get(ctx context.Context, id uuid.UUID) (*users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, apperror.NewNotFoundError("USER_NOT_FOUND", nil)
	}
	return &user, nil
}

// EmailExists reports whether a user owns the given email.
func (r *MemoryUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.emails[email]
	return ok, nil
}

// UsernameExists reports whether a user owns the given username.
func (r *MemoryUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.usernames[username]
	return ok, nil
}

// Credentials returns the stored credentials for a user id, if any.
func (r *MemoryUserRepository) Credentials(id uuid.UUID) (users.Credentials, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	creds, ok := r.creds[id]
	return creds, ok
}

type codeEntry struct {
	code      verification.Code
	expiresAt time.Time
}

// MemoryCodeRepository is a map-backed VerificationCodeRepository with TTL
// semantics. The clock is injectable so expiry is testable without sleeping.
type MemoryCodeRepository struct {
	mu      sync.Mutex
	entries map[string]codeEntry
	now     func() time.Time
}

// NewMemoryCodeRepository creates an empty in-memory code store.
func NewMemoryCodeRepository() *MemoryCodeRepository {
	return &MemoryCodeRepository{
		entries: make(map[string]codeEntry),
		now:     time.Now,
	}
}

// SetClock replaces the store's clock.
func (r *MemoryCodeRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Store keeps code for email, replacing any previous one, valid for ttl.
func (r *MemoryCodeRepository) Store(ctx context.Context, email string, code verification.Code, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[email] = codeEntry{code: code, expiresAt: r.now().Add(ttl)}
	return nil
}

// Matches reports whether the stored, unexpired code for email equals code.
func (r *MemoryCodeRepository) Matches(ctx context.Context, email string, code verification.Code) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[email]
	if !ok || r.now().After(entry.expiresAt) {
		return false, nil
	}
	return entry.code == code, nil
}

// Stored returns the live code for email, for test assertions.
func (r *MemoryCodeRepository) Stored(email string) (verification.Code, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[email]
	if !ok || r.now().After(entry.expiresAt) {
		return "", false
	}
	return entry.code, true
}

// Len reports how many unexpired codes are stored.
func (r *MemoryCodeRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, entry := range r.entries {
		if !r.now().After(entry.expiresAt) {
			n++
		}
	}
	return n
}

// MemoryTemporaryUserRepository is a map-backed TemporaryUserRepository.
type MemoryTemporaryUserRepository struct {
	mu     sync.RWMutex
	emails map[uuid.UUID]string
}

// NewMemoryTemporaryUserRepository creates an empty in-memory staging store.
func NewMemoryTemporaryUserRepository() *MemoryTemporaryUserRepository {
	return &MemoryTemporaryUserRepository{emails: make(map[uuid.UUID]string)}
}

// Store binds id to email.
func (r *MemoryTemporaryUserRepository) Store(ctx context.Context, id uuid.UUID, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails[id] = email
	return nil
}

// GetEmail returns the email bound to id.
func (r *MemoryTemporaryUserRepository) GetEmail(ctx context.Context, id uuid.UUID) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email, ok := r.emails[id]
	if !ok {
		return "", apperror.NewNotFoundError("TEMPORARY_USER_NOT_FOUND", nil)
	}
	return email, nil
}

// SentEmail records one dispatched verification email.
type SentEmail struct {
	Email string
	Code  verification.Code
}

// MemorySender is an EmailSender that records what it was asked to send.
type MemorySender struct {
	mu   sync.Mutex
	sent []SentEmail
}

// NewMemorySender creates an empty recording sender.
func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

// SendVerificationEmail records the dispatch.
func (s *MemorySender) SendVerificationEmail(ctx context.Context, email string, code verification.Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, SentEmail{Email: email, Code: code})
	return nil
}

// Sent returns a copy of everything sent so far.
func (s *MemorySender) Sent() []SentEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentEmail, len(s.sent))
	copy(out, s.sent)
	return out
}

// LastCode returns the most recently sent code for email.
func (s *MemorySender) LastCode(email string) (verification.Code, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sent) - 1; i >= 0; i-- {
		if s.sent[i].Email == email {
			return s.sent[i].Code, true
		}
	}
	return "", false
}
