package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/zwitter-go/apperror"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const pgUniqueViolation = "23505"

// PostgresRepository is the pgx-backed user store. It satisfies the
// repository contract the signup pipeline consumes.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a PostgresRepository on the given pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists a user and its password credentials in one transaction.
// Either both rows are committed or neither is. Unique violations surface as
// domain errors: two racing signups may both pass the existence checks, the
// constraints here are the actual correctness backstop.
func (r *PostgresRepository) Create(ctx context.Context, user *User, creds *Credentials) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperror.NewUnexpectedError("USERS_CREATE_BEGIN", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO users (id, username, email, birthday) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Username, user.Email, user.Birthday.Time,
	)
	if err != nil {
		return mapCreateError(err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO email_password_credentials (id, user_id, password_hash) VALUES ($1, $2, $3)`,
		uuid.New(), creds.UserID, creds.PasswordHash,
	)
	if err != nil {
		return mapCreateError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.NewUnexpectedError("USERS_CREATE_COMMIT", err)
	}
	return nil
}

// mapCreateError translates unique-constraint violations into domain errors
// and everything else into an unexpected error.
func mapCreateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if strings.Contains(pgErr.ConstraintName, "username") {
			return apperror.NewDomainError("USERNAME_ALREADY_TAKEN")
		}
		if strings.Contains(pgErr.ConstraintName, "email") {
			return apperror.NewDomainError("EMAIL_ALREADY_TAKEN")
		}
	}
	return apperror.NewUnexpectedError("USERS_CREATE", err)
}

// Get retrieves a user by id.
func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := r.db.QueryRow(ctx,
		`SELECT id, username, email, birthday, created_at, updated_at FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Username, &user.Email, &user.Birthday.Time, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("USER_NOT_FOUND", nil)
		}
		return nil, apperror.NewUnexpectedError("USERS_GET", err)
	}
	return &user, nil
}

// EmailExists reports whether a user with the given email exists.
func (r *PostgresRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email,
	).Scan(&exists)
	if err != nil {
		return false, apperror.NewUnexpectedError("USERS_EMAIL_EXISTS", err)
	}
	return exists, nil
}

// UsernameExists reports whether a user with the given username exists.
func (r *PostgresRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&exists)
	if err != nil {
		return false, apperror.NewUnexpectedError("USERS_USERNAME_EXISTS", err)
	}
	return exists, nil
}
