package users

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/user/zwitter-go/apperror"
)

// Getter is the slice of the user repository the read handlers need.
type Getter interface {
	Get(ctx context.Context, id uuid.UUID) (*User, error)
}

// Handlers provides the HTTP handlers for reading users.
type Handlers struct {
	users Getter
}

// NewHandlers creates a Handlers instance.
func NewHandlers(users Getter) *Handlers {
	return &Handlers{users: users}
}

// HandleGetUser godoc
// @Summary Get a user by id
// @Description Returns the user identified by the user_id path parameter.
// @Tags Users
// @Produce json
// @Param user_id path string true "User id (UUID)"
// @Success 200 {object} users.User "User found"
// @Failure 400 {object} apperror.ErrorResponse "Malformed user id"
// @Failure 404 {object} apperror.ErrorResponse "User not found"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /users/{user_id} [get]
func (h *Handlers) HandleGetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, apperror.NewValidationError("GET_USER", map[string][]string{
				"user_id": {"must be a valid UUID"},
			}))
			return
		}

		user, err := h.users.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

// writeJSON serializes data and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, `{"error":"Unexpected","message":{"code":"ENCODE_RESPONSE"}}`, http.StatusInternalServerError)
		}
	}
}

// writeError renders any error through the apperror taxonomy.
func writeError(w http.ResponseWriter, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		appErr = apperror.NewUnexpectedError("UNHANDLED", err)
	}
	writeJSON(w, appErr.StatusCode(), appErr.ToResponse())
}
