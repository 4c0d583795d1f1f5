package signup_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/zwitter-go/config"
	"github.com/user/zwitter-go/signup"
	"github.com/user/zwitter-go/users"
)

// testServer wires the full router the way main.go does, backed by the
// in-memory repositories, so tests can drive the pipeline over HTTP.
type testServer struct {
	router *chi.Mux
	users  *signup.MemoryUserRepository
	sender *signup.MemorySender
}

func newTestServer() *testServer {
	userRepo := signup.NewMemoryUserRepository()
	codeRepo := signup.NewMemoryCodeRepository()
	tmpUserRepo := signup.NewMemoryTemporaryUserRepository()
	sender := signup.NewMemorySender()

	service := signup.NewService(userRepo, codeRepo, tmpUserRepo, sender, config.SignupConfig{
		CodeTTL:    time.Hour,
		TmpUserTTL: time.Hour,
	})
	signupHandlers := signup.NewHandlers(service)
	userHandlers := users.NewHandlers(userRepo)

	r := chi.NewRouter()
	r.Route("/signup", func(r chi.Router) {
		r.Post("/email", signupHandlers.HandleRequestVerification())
		r.Post("/email/verify", signupHandlers.HandleValidateCode())
	})
	r.Route("/users", func(r chi.Router) {
		r.Post("/", signupHandlers.HandleCreateUser())
		r.Get("/{userID}", userHandlers.HandleGetUser())
	})

	return &testServer{router: r, users: userRepo, sender: sender}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return body
}

func signupBody(email string) map[string]interface{} {
	return map[string]interface{}{
		"email":    email,
		"username": "johnsmith",
		"password": "qwerty123",
		"birthday": "1991-12-29",
	}
}

func TestSignupPipelineEndToEnd(t *testing.T) {
	s := newTestServer()
	const email = "john.smith@gmail.com"

	// Step one: request a verification code.
	rec := s.do(t, http.MethodPost, "/signup/email", signupBody(email))
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	code, ok := s.sender.LastCode(email)
	require.True(t, ok, "a verification email must have been dispatched")

	// Step two: validate the code and receive a temporary user id.
	rec = s.do(t, http.MethodPost, "/signup/email/verify", map[string]interface{}{
		"email": email,
		"code":  code.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	tmpUserID := decodeBody(t, rec)["tmp_user_id"].(string)
	require.NoError(t, uuid.Validate(tmpUserID))

	// Step three: complete signup under that id.
	create := signupBody(email)
	create["user_id"] = tmpUserID
	rec = s.do(t, http.MethodPost, "/users", create)
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	// The persisted user is readable and the staged id became the user id.
	rec = s.do(t, http.MethodGet, "/users/"+tmpUserID, nil)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	user := decodeBody(t, rec)
	assert.Equal(t, tmpUserID, user["user_id"])
	assert.Equal(t, "johnsmith", user["username"])
	assert.Equal(t, email, user["email"])
	assert.Equal(t, "1991-12-29", user["birthday"])
}

func TestRequestVerificationRejectsInvalidPayload(t *testing.T) {
	s := newTestServer()

	body := signupBody("not-an-email")
	rec := s.do(t, http.MethodPost, "/signup/email", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeBody(t, rec)
	assert.Equal(t, "Validation", resp["error"])

	message := resp["message"].(map[string]interface{})
	assert.Equal(t, "SIGNUP_EMAIL", message["code"])
	fields := message["fields"].(map[string]interface{})
	assert.Contains(t, fields, "email")
}

func TestRequestVerificationRejectsMalformedJSON(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/signup/email", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation", decodeBody(t, rec)["error"])
}

func TestRequestVerificationExistingEmailIsBadGateway(t *testing.T) {
	s := newTestServer()
	const email = "john.smith@gmail.com"

	completeSignup(t, s, email)

	rec := s.do(t, http.MethodPost, "/signup/email", signupBody(email))
	require.Equal(t, http.StatusBadGateway, rec.Code)

	resp := decodeBody(t, rec)
	assert.Equal(t, "Domain", resp["error"])
	assert.Equal(t, "USER_ALREADY_EXISTS", resp["message"])
}

func TestValidateCodeMismatchIsBadGateway(t *testing.T) {
	s := newTestServer()
	const email = "john.smith@gmail.com"

	rec := s.do(t, http.MethodPost, "/signup/email", signupBody(email))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/signup/email/verify", map[string]interface{}{
		"email": email,
		"code":  wrongCode(t, s, email),
	})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	resp := decodeBody(t, rec)
	assert.Equal(t, "Domain", resp["error"])
	assert.Equal(t, "INVALID_EMAIL_VERIFICATION_TOKEN", resp["message"])
}

func TestCreateUserUnknownTmpUserIsNotFound(t *testing.T) {
	s := newTestServer()

	create := signupBody("john.smith@gmail.com")
	create["user_id"] = uuid.NewString()
	rec := s.do(t, http.MethodPost, "/users", create)
	require.Equal(t, http.StatusNotFound, rec.Code)

	resp := decodeBody(t, rec)
	assert.Equal(t, "Technical", resp["error"])
	message := resp["message"].(map[string]interface{})
	assert.Equal(t, "TEMPORARY_USER_NOT_FOUND", message["NotFound"])
}

func TestGetUserMalformedIDIsBadRequest(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodGet, "/users/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation", decodeBody(t, rec)["error"])
}

func TestGetUserUnknownIDIsNotFound(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodGet, "/users/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	resp := decodeBody(t, rec)
	assert.Equal(t, "Technical", resp["error"])
	message := resp["message"].(map[string]interface{})
	assert.Equal(t, "USER_NOT_FOUND", message["NotFound"])
}

// completeSignup drives the whole pipeline for email so later requests see an
// existing account.
func completeSignup(t *testing.T, s *testServer, email string) {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/signup/email", signupBody(email))
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	code, ok := s.sender.LastCode(email)
	require.True(t, ok)

	rec = s.do(t, http.MethodPost, "/signup/email/verify", map[string]interface{}{
		"email": email,
		"code":  code.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	create := signupBody(email)
	create["user_id"] = decodeBody(t, rec)["tmp_user_id"]
	rec = s.do(t, http.MethodPost, "/users", create)
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
}

// wrongCode returns a well-formed code that differs from the one issued.
func wrongCode(t *testing.T, s *testServer, email string) string {
	t.Helper()
	issued, ok := s.sender.LastCode(email)
	require.True(t, ok)
	if issued.String() == "AAAAAA" {
		return "BBBBBB"
	}
	return "AAAAAA"
}
