package signup

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/zwitter-go/apperror"
	"github.com/user/zwitter-go/config"
	"github.com/user/zwitter-go/users"
	"github.com/user/zwitter-go/verification"
)

// Service orchestrates the three-step signup state machine:
//
//	Unverified -> CodeIssued -> Staged -> Created
//
// Each step runs within a single request. The service owns sequencing and
// failure classification; each repository owns its entity family and its own
// uniqueness/existence queries. The existence checks in steps one and three
// are not atomic with the final write; two concurrent signups for the same
// email can both pass them, and the user store's unique constraints are the
// backstop that rejects the second write.
type Service struct {
	users    UserRepository
	codes    VerificationCodeRepository
	tmpUsers TemporaryUserRepository
	sender   EmailSender
	codeTTL  time.Duration
	validate *validator.Validate
}

// NewService creates a signup Service with its collaborators injected.
func NewService(
	userRepo UserRepository,
	codeRepo VerificationCodeRepository,
	tmpUserRepo TemporaryUserRepository,
	sender EmailSender,
	cfg config.SignupConfig,
) *Service {
	return &Service{
		users:    userRepo,
		codes:    codeRepo,
		tmpUsers: tmpUserRepo,
		sender:   sender,
		codeTTL:  cfg.CodeTTL,
		validate: newValidator(),
	}
}

// RequestVerification handles the first step (Unverified -> CodeIssued): it
// rejects emails that already belong to an account with USER_ALREADY_EXISTS,
// then issues a fresh code, stores it keyed by email with the configured TTL
// and dispatches it to the address. A failed store write after the existence
// check leaves no code behind; a failed send after a successful store is an
// accepted gap (the code expires on its own).
func (s *Service) RequestVerification(ctx context.Context, req SignupEmailRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return apperror.FromValidator("SIGNUP_EMAIL", err)
	}

	exists, err := s.users.EmailExists(ctx, req.Email)
	if err != nil {
		return err
	}
	if exists {
		return apperror.NewDomainError("USER_ALREADY_EXISTS")
	}

	code, err := verification.New()
	if err != nil {
		return err
	}

	if err := s.codes.Store(ctx, req.Email, code, s.codeTTL); err != nil {
		return err
	}

	return s.sender.SendVerificationEmail(ctx, req.Email, code)
}

// ValidateCode handles the second step (CodeIssued -> Staged): the presented
// code must exactly equal the stored one for the email; an absent, expired or
// different code fails with INVALID_EMAIL_VERIFICATION_TOKEN. On success a
// new opaque temporary-user identifier is minted and bound to the email; the
// caller must hold it to complete signup.
func (s *Service) ValidateCode(ctx context.Context, req EmailVerificationRequest) (uuid.UUID, error) {
	if err := s.validate.Struct(req); err != nil {
		return uuid.Nil, apperror.FromValidator("VALIDATE_EMAIL_VERIFICATION_CODE", err)
	}

	code, err := verification.Parse(req.Code)
	if err != nil {
		return uuid.Nil, err
	}

	valid, err := s.codes.Matches(ctx, req.Email, code)
	if err != nil {
		return uuid.Nil, err
	}
	if !valid {
		return uuid.Nil, apperror.NewDomainError("INVALID_EMAIL_VERIFICATION_TOKEN")
	}

	tmpUserID := uuid.New()
	if err := s.tmpUsers.Store(ctx, tmpUserID, req.Email); err != nil {
		return uuid.Nil, err
	}

	return tmpUserID, nil
}

// CompleteSignup handles the terminal step (Staged -> Created): the staged
// email for the presented identifier must exist (TEMPORARY_USER_NOT_FOUND
// otherwise) and equal the submitted email (CREATE_USER_EMAIL_MISMATCH
// otherwise). The user row and the bcrypt credential row are then written in
// a single transaction; the create never partially applies one without the
// other.
func (s *Service) CompleteSignup(ctx context.Context, req CreateUserRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return apperror.FromValidator("CREATE_USER", err)
	}

	email, err := s.tmpUsers.GetEmail(ctx, req.UserID)
	if err != nil {
		return err
	}
	if req.Email != email {
		return apperror.NewDomainError("CREATE_USER_EMAIL_MISMATCH")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperror.NewUnexpectedError("CREATE_USER_HASH", err)
	}

	user := &users.User{
		ID:       req.UserID,
		Username: req.Username,
		Email:    req.Email,
		Birthday: req.Birthday,
	}
	creds := &users.Credentials{
		UserID:       req.UserID,
		PasswordHash: string(hash),
	}

	return s.users.Create(ctx, user, creds)
}
