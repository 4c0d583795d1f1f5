// Package signup implements the registration pipeline: requesting an email
// verification code, validating the presented code, and completing signup by
// persisting the user. The package owns the request DTOs, the repository
// contracts it consumes, and the HTTP handlers for the signup routes.
package signup

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/user/zwitter-go/users"
)

// SignupEmailRequest is the payload of POST /signup/email. UserID is
// accepted for wire compatibility but not used by the pipeline; the identity
// the account will be created under is minted at the code-validation step.
type SignupEmailRequest struct {
	UserID   uuid.UUID  `json:"user_id"`
	Email    string     `json:"email" validate:"required,email"`
	Username string     `json:"username" validate:"required,min=3,max=42"`
	Password string     `json:"password" validate:"required,min=8,max=256"`
	Birthday users.Date `json:"birthday" validate:"required"`
}

// EmailVerificationRequest is the payload of POST /signup/email/verify. The
// code is kept as a raw string here; format checking happens through
// verification.Parse so malformed codes surface as validation errors rather
// than verification mismatches.
type EmailVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

// EmailVerificationResponse carries the minted temporary-user identifier the
// caller must present to complete signup.
type EmailVerificationResponse struct {
	TmpUserID uuid.UUID `json:"tmp_user_id"`
}

// CreateUserRequest is the payload of POST /users. UserID is the
// temporary-user identifier obtained from the verification step and becomes
// the persisted user's id.
type CreateUserRequest struct {
	UserID   uuid.UUID  `json:"user_id" validate:"required"`
	Username string     `json:"username" validate:"required,min=3,max=24"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=8,max=256"`
	Birthday users.Date `json:"birthday" validate:"required"`
}

// newValidator builds the validator instance used by the service. Field
// names in validation errors follow the json tags, so error payloads speak
// the same language as request bodies.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
