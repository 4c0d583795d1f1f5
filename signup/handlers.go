package signup

import (
	"encoding/json"
	"net/http"

	"github.com/user/zwitter-go/apperror"
)

// Handlers wraps the signup Service with HTTP handlers. Each handler
// deserializes the request body into its DTO, delegates to the service and
// renders either the success response or the typed error.
type Handlers struct {
	service *Service
}

// NewHandlers creates a Handlers instance.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleRequestVerification godoc
// @Summary Request an email verification code
// @Description Validates the signup payload, stores a fresh verification code for the email and dispatches it.
// @Tags Signup
// @Accept json
// @Produce json
// @Param signupBody body signup.SignupEmailRequest true "Signup details"
// @Success 201 "Verification code issued"
// @Failure 400 {object} apperror.ErrorResponse "Validation failure"
// @Failure 502 {object} apperror.ErrorResponse "USER_ALREADY_EXISTS"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /signup/email [post]
func (h *Handlers) HandleRequestVerification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupEmailRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperror.NewValidationError("SIGNUP_EMAIL", bodyError(err)))
			return
		}
		defer r.Body.Close()

		if err := h.service.RequestVerification(r.Context(), req); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, nil)
	}
}

// HandleValidateCode godoc
// @Summary Validate an email verification code
// @Description Matches the presented code against the stored one and stages a temporary user on success.
// @Tags Signup
// @Accept json
// @Produce json
// @Param verifyBody body signup.EmailVerificationRequest true "Email and code"
// @Success 200 {object} signup.EmailVerificationResponse "Temporary user staged"
// @Failure 400 {object} apperror.ErrorResponse "Validation failure"
// @Failure 502 {object} apperror.ErrorResponse "INVALID_EMAIL_VERIFICATION_TOKEN"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /signup/email/verify [post]
func (h *Handlers) HandleValidateCode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EmailVerificationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperror.NewValidationError("VALIDATE_EMAIL_VERIFICATION_CODE", bodyError(err)))
			return
		}
		defer r.Body.Close()

		tmpUserID, err := h.service.ValidateCode(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, EmailVerificationResponse{TmpUserID: tmpUserID})
	}
}

// HandleCreateUser godoc
// @Summary Complete signup
// @Description Persists the user for a previously staged temporary-user identifier.
// @Tags Signup
// @Accept json
// @Produce json
// @Param createBody body signup.CreateUserRequest true "User creation details"
// @Success 201 "User created"
// @Failure 400 {object} apperror.ErrorResponse "Validation failure"
// @Failure 404 {object} apperror.ErrorResponse "TEMPORARY_USER_NOT_FOUND"
// @Failure 502 {object} apperror.ErrorResponse "CREATE_USER_EMAIL_MISMATCH or uniqueness violation"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /users [post]
func (h *Handlers) HandleCreateUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperror.NewValidationError("CREATE_USER", bodyError(err)))
			return
		}
		defer r.Body.Close()

		if err := h.service.CompleteSignup(r.Context(), req); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, nil)
	}
}

// bodyError wraps a JSON decoding failure as a field map on the body itself.
func bodyError(err error) map[string][]string {
	return map[string][]string{"body": {"invalid request body: " + err.Error()}}
}

// writeJSON serializes data and writes it with the given status. A nil data
// writes the status line only.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, `{"error":"Unexpected","message":{"code":"ENCODE_RESPONSE"}}`, http.StatusInternalServerError)
		}
	}
}

// writeError renders any error through the apperror taxonomy, wrapping
// unclassified errors as unexpected.
func writeError(w http.ResponseWriter, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		appErr = apperror.NewUnexpectedError("UNHANDLED", err)
	}
	writeJSON(w, appErr.StatusCode(), appErr.ToResponse())
}
