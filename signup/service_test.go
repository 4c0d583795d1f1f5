package signup

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/zwitter-go/apperror"
	"github.com/user/zwitter-go/config"
	"github.com/user/zwitter-go/users"
	"github.com/user/zwitter-go/verification"
)

const (
	testEmail    = "john.smith@gmail.com"
	testUsername = "johnsmith"
	testPassword = "qwerty123"
)

// fixture bundles a service with its in-memory collaborators so tests can
// inspect side effects directly.
type fixture struct {
	users    *MemoryUserRepository
	codes    *MemoryCodeRepository
	tmpUsers *MemoryTemporaryUserRepository
	sender   *MemorySender
	service  *Service
}

func newFixture() *fixture {
	f := &fixture{
		users:    NewMemoryUserRepository(),
		codes:    NewMemoryCodeRepository(),
		tmpUsers: NewMemoryTemporaryUserRepository(),
		sender:   NewMemorySender(),
	}
	f.service = NewService(f.users, f.codes, f.tmpUsers, f.sender, config.SignupConfig{
		CodeTTL:    time.Hour,
		TmpUserTTL: time.Hour,
	})
	return f
}

func testBirthday(t *testing.T) users.Date {
	t.Helper()
	d, err := users.ParseDate("1991-12-29")
	require.NoError(t, err)
	return d
}

func signupRequest(t *testing.T) SignupEmailRequest {
	return SignupEmailRequest{
		UserID:   uuid.New(),
		Email:    testEmail,
		Username: testUsername,
		Password: testPassword,
		Birthday: testBirthday(t),
	}
}

// seedUser persists an existing account directly through the repository.
func seedUser(t *testing.T, f *fixture, email, username string) {
	t.Helper()
	err := f.users.Create(context.Background(), &users.User{
		ID:       uuid.New(),
		Username: username,
		Email:    email,
		Birthday: testBirthday(t),
	}, &users.Credentials{UserID: uuid.New(), PasswordHash: "x"})
	require.NoError(t, err)
}

func TestRequestVerificationIssuesExactlyOneCode(t *testing.T) {
	f := newFixture()

	err := f.service.RequestVerification(context.Background(), signupRequest(t))
	require.NoError(t, err)

	stored, ok := f.codes.Stored(testEmail)
	require.True(t, ok, "expected a code stored for %s", testEmail)
	assert.Equal(t, 1, f.codes.Len())

	sent := f.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, testEmail, sent[0].Email)
	assert.Equal(t, stored, sent[0].Code, "dispatched code must equal the stored one")
}

func TestRequestVerificationFailsForExistingUser(t *testing.T) {
	f := newFixture()
	seedUser(t, f, testEmail, testUsername)

	err := f.service.RequestVerification(context.Background(), signupRequest(t))
	require.Error(t, err)
	assert.True(t, apperror.IsDomain(err, "USER_ALREADY_EXISTS"), "got %v", err)

	// No code must be issued and no email sent on the failure path.
	assert.Equal(t, 0, f.codes.Len())
	assert.Empty(t, f.sender.Sent())
}

func TestRequestVerificationValidation(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name   string
		mutate func(*SignupEmailRequest)
		field  string
	}{
		{"malformed email", func(r *SignupEmailRequest) { r.Email = "john.smith" }, "email"},
		{"username too short", func(r *SignupEmailRequest) { r.Username = "jo" }, "username"},
		{"username too long", func(r *SignupEmailRequest) { r.Username = "jjjjjjjjjjjjjjjjjjjjjjjjjjjjjjjjjjjjjjjjjjj" }, "username"},
		{"password too short", func(r *SignupEmailRequest) { r.Password = "qwerty" }, "password"},
		{"missing birthday", func(r *SignupEmailRequest) { r.Birthday = users.Date{} }, "birthday"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := signupRequest(t)
			tt.mutate(&req)

			err := f.service.RequestVerification(context.Background(), req)
			require.Error(t, err)
			require.True(t, apperror.IsValidation(err), "got %v", err)

			appErr, _ := apperror.FromError(err)
			assert.Equal(t, "SIGNUP_EMAIL", appErr.Code)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestValidateCodeStagesTemporaryUser(t *testing.T) {
	f := newFixture()
	code := storeCode(t, f, testEmail, "ABC123")

	tmpUserID, err := f.service.ValidateCode(context.Background(), EmailVerificationRequest{
		Email: testEmail,
		Code:  code.String(),
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, tmpUserID)

	staged, err := f.tmpUsers.GetEmail(context.Background(), tmpUserID)
	require.NoError(t, err)
	assert.Equal(t, testEmail, staged)
}

func TestValidateCodeRejectsDifferentCode(t *testing.T) {
	f := newFixture()
	storeCode(t, f, testEmail, "ABCDEF")

	_, err := f.service.ValidateCode(context.Background(), EmailVerificationRequest{
		Email: testEmail,
		Code:  "123456",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsDomain(err, "INVALID_EMAIL_VERIFICATION_TOKEN"), "got %v", err)
}

func TestValidateCodeRejectsWhenNoCodeStored(t *testing.T) {
	f := newFixture()

	_, err := f.service.ValidateCode(context.Background(), EmailVerificationRequest{
		Email: testEmail,
		Code:  "ABC123",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsDomain(err, "INVALID_EMAIL_VERIFICATION_TOKEN"), "got %v", err)
}

func TestValidateCodeRejectsExpiredCode(t *testing.T) {
	f := newFixture()
	code := storeCode(t, f, testEmail, "ABC123")

	// Advance the store's clock beyond the TTL; expiry is the store's job,
	// not the service's.
	f.codes.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })

	_, err := f.service.ValidateCode(context.Background(), EmailVerificationRequest{
		Email: testEmail,
		Code:  code.String(),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsDomain(err, "INVALID_EMAIL_VERIFICATION_TOKEN"), "got %v", err)
}

func TestValidateCodeRejectsMalformedCode(t *testing.T) {
	f := newFixture()
	storeCode(t, f, testEmail, "ABC123")

	// Lowercase never matches anything; it fails validation before lookup.
	_, err := f.service.ValidateCode(context.Background(), EmailVerificationRequest{
		Email: testEmail,
		Code:  "abc123",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err), "got %v", err)
}

func TestCompleteSignupFailsWithoutStagedUser(t *testing.T) {
	f := newFixture()

	err := f.service.CompleteSignup(context.Background(), createUserRequest(t, uuid.New(), testEmail))
	require.Error(t, err)
	require.True(t, apperror.IsNotFound(err), "got %v", err)

	appErr, _ := apperror.FromError(err)
	assert.Equal(t, "TEMPORARY_USER_NOT_FOUND", appErr.Code)
}

func TestCompleteSignupFailsOnEmailMismatch(t *testing.T) {
	f := newFixture()

	tmpUserID := uuid.New()
	require.NoError(t, f.tmpUsers.Store(context.Background(), tmpUserID, testEmail))

	// Valid identifier, different email: the staged binding wins.
	err := f.service.CompleteSignup(context.Background(), createUserRequest(t, tmpUserID, "someone.else@gmail.com"))
	require.Error(t, err)
	assert.True(t, apperror.IsDomain(err, "CREATE_USER_EMAIL_MISMATCH"), "got %v", err)
}

func TestCompleteSignupPersistsUserAndCredentials(t *testing.T) {
	f := newFixture()

	tmpUserID := uuid.New()
	require.NoError(t, f.tmpUsers.Store(context.Background(), tmpUserID, testEmail))

	err := f.service.CompleteSignup(context.Background(), createUserRequest(t, tmpUserID, testEmail))
	require.NoError(t, err)

	user, err := f.users.Get(context.Background(), tmpUserID)
	require.NoError(t, err)
	assert.Equal(t, testUsername, user.Username)
	assert.Equal(t, testEmail, user.Email)
	assert.Equal(t, "1991-12-29", user.Birthday.String())

	creds, ok := f.users.Credentials(tmpUserID)
	require.True(t, ok, "credentials must be written together with the user")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(testPassword)))
}

func TestCompleteSignupSurfacesUniquenessViolations(t *testing.T) {
	f := newFixture()
	seedUser(t, f, "taken.username@gmail.com", testUsername)

	tmpUserID := uuid.New()
	require.NoError(t, f.tmpUsers.Store(context.Background(), tmpUserID, testEmail))

	err := f.service.CompleteSignup(context.Background(), createUserRequest(t, tmpUserID, testEmail))
	require.Error(t, err)
	assert.True(t, apperror.IsDomain(err, "USERNAME_ALREADY_TAKEN"), "got %v", err)
}

func TestCompleteSignupValidation(t *testing.T) {
	f := newFixture()

	req := createUserRequest(t, uuid.New(), "john.smith")
	req.Username = "jo"

	err := f.service.CompleteSignup(context.Background(), req)
	require.Error(t, err)
	require.True(t, apperror.IsValidation(err), "got %v", err)

	appErr, _ := apperror.FromError(err)
	assert.Equal(t, "CREATE_USER", appErr.Code)
	assert.Contains(t, appErr.Fields, "email")
	assert.Contains(t, appErr.Fields, "username")
}

// storeCode parses raw and stores it for email with a one-hour TTL.
func storeCode(t *testing.T, f *fixture, email, raw string) verification.Code {
	t.Helper()
	code, err := verification.Parse(raw)
	require.NoError(t, err)
	require.NoError(t, f.codes.Store(context.Background(), email, code, time.Hour))
	return code
}

func createUserRequest(t *testing.T, id uuid.UUID, email string) CreateUserRequest {
	return CreateUserRequest{
		UserID:   id,
		Username: testUsername,
		Email:    email,
		Password: testPassword,
		Birthday: testBirthday(t),
	}
}
