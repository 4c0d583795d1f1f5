// Package apperror defines the closed set of error categories used across the
// application and their mapping to HTTP responses. Every failure that crosses
// a package boundary is one of four kinds: Technical (infrastructure, with a
// not-found subcase), Domain (business-rule violation), Unexpected (internal
// fault with an error code) or Validation (field-level input failures).
// Handlers never inspect raw errors; they render whatever AppError reaches
// them via StatusCode and ToResponse.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorType enumerates the error taxonomy.
type ErrorType int

const (
	// UnknownError is for errors that escaped classification.
	UnknownError ErrorType = iota
	// TechnicalError represents an infrastructure failure (store unreachable,
	// connection refused). When NotFound is set it is the not-found subcase:
	// an entity was absent from a store where absence is exceptional.
	TechnicalError
	// DomainError represents a business-rule violation carrying a stable
	// error code such as USER_ALREADY_EXISTS.
	DomainError
	// UnexpectedError represents an internal fault identified by a code,
	// optionally with a diagnostic reason string.
	UnexpectedError
	// ValidationError represents field-level input validation failures.
	ValidationError
)

// String returns the wire name of the error type. These names appear verbatim
// in the "error" field of API error responses.
func (t ErrorType) String() string {
	switch t {
	case TechnicalError:
		return "Technical"
	case DomainError:
		return "Domain"
	case UnexpectedError:
		return "Unexpected"
	case ValidationError:
		return "Validation"
	default:
		return "Unknown"
	}
}

// AppError is the application error type. Which fields are populated depends
// on Type: Code for domain/unexpected/not-found errors, Reason for unexpected
// diagnostics, Fields for validation detail.
type AppError struct {
	Type     ErrorType
	Code     string
	Reason   string
	NotFound bool
	// Fields maps a field name to the validation messages for that field.
	Fields map[string][]string
	Err    error // underlying error, never sent to clients
}

// Error satisfies the error interface.
func (e *AppError) Error() string {
	switch {
	case e.Err != nil && e.Code != "":
		return fmt.Sprintf("%s error %s: %v", e.Type, e.Code, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Type, e.Err)
	case e.Code != "":
		return fmt.Sprintf("%s error: %s", e.Type, e.Code)
	default:
		return fmt.Sprintf("%s error", e.Type)
	}
}

// Unwrap exposes the underlying error to errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status for the error type. Domain errors map to
// 502 rather than 409/422; the status contract is part of the public API.
func (e *AppError) StatusCode() int {
	switch e.Type {
	case DomainError:
		return http.StatusBadGateway
	case ValidationError:
		return http.StatusBadRequest
	case TechnicalError:
		if e.NotFound {
			return http.StatusNotFound
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewDomainError creates a DomainError carrying a stable error code.
func NewDomainError(code string) *AppError {
	return &AppError{Type: DomainError, Code: code}
}

// NewNotFoundError creates the not-found subcase of TechnicalError.
func NewNotFoundError(code string, underlying error) *AppError {
	return &AppError{Type: TechnicalError, Code: code, NotFound: true, Err: underlying}
}

// NewTechnicalError creates a TechnicalError for infrastructure failures
// where no more specific classification applies.
func NewTechnicalError(underlying error) *AppError {
	return &AppError{Type: TechnicalError, Err: underlying}
}

// NewUnexpectedError creates an UnexpectedError. The underlying error, when
// present, is kept as a diagnostic reason in the response body and in logs.
func NewUnexpectedError(code string, underlying error) *AppError {
	e := &AppError{Type: UnexpectedError, Code: code, Err: underlying}
	if underlying != nil {
		e.Reason = underlying.Error()
	}
	return e
}

// NewValidationError creates a ValidationError from an already-built field
// map. The code names the operation whose input failed (e.g. SIGNUP_EMAIL).
func NewValidationError(code string, fields map[string][]string) *AppError {
	return &AppError{Type: ValidationError, Code: code, Fields: fields}
}

// FromValidator converts the error returned by validator/v10 into a
// ValidationError with per-field messages. Non-validator errors (which the
// library returns for unusable input values) become an UnexpectedError.
func FromValidator(code string, err error) *AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewUnexpectedError(code, err)
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], fieldMessage(fe))
	}
	return NewValidationError(code, fields)
}

// fieldMessage renders a single validator failure as a client-facing message.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a well-formed email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters long", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// ErrorResponse is the wire shape of every error response:
// {"error": <kind>, "message": <payload>}. The payload depends on the kind:
// a code string for Domain, {"NotFound": code} or "Unknown" for Technical,
// {code, reason?} for Unexpected and {code, fields} for Validation.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message interface{} `json:"message"`
}

type unexpectedPayload struct {
	Code   string `json:"code"`
	Reason string `json:"reason,omitempty"`
}

type validationPayload struct {
	Code   string              `json:"code"`
	Fields map[string][]string `json:"fields"`
}

// ToResponse converts the error into its API representation. Underlying
// errors are deliberately omitted except for the unexpected-error reason.
func (e *AppError) ToResponse() ErrorResponse {
	resp := ErrorResponse{Error: e.Type.String()}
	switch e.Type {
	case DomainError:
		resp.Message = e.Code
	case TechnicalError:
		if e.NotFound {
			resp.Message = map[string]string{"NotFound": e.Code}
		} else {
			resp.Message = "Unknown"
		}
	case UnexpectedError:
		resp.Message = unexpectedPayload{Code: e.Code, Reason: e.Reason}
	case ValidationError:
		resp.Message = validationPayload{Code: e.Code, Fields: e.Fields}
	default:
		resp.Message = "Unknown"
	}
	return resp
}

// FromError attempts to convert a generic error to an *AppError.
func FromError(err error) (*AppError, bool) {
	if err == nil {
		return nil, false
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsDomain reports whether err is a DomainError, optionally matching a code.
// An empty code matches any domain error.
func IsDomain(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == DomainError && (code == "" || appErr.Code == code)
}

// IsNotFound reports whether err is the technical not-found subcase.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == TechnicalError && appErr.NotFound
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ValidationError
}

// IsUnexpected reports whether err is an UnexpectedError.
func IsUnexpected(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == UnexpectedError
}
