// Package store provides the Redis-backed adapters for the ephemeral signup
// state: issued verification codes and staged temporary users. Both entity
// families live under their own key prefix and expire through Redis TTLs;
// no application-level expiry logic exists.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/user/zwitter-go/apperror"
	"github.com/user/zwitter-go/verification"
)

const (
	codeKeyPrefix    = "signup:code:"
	tmpUserKeyPrefix = "signup:tmp:"
)

// RedisCodeStore keeps verification codes keyed by email.
type RedisCodeStore struct {
	rdb *redis.Client
}

// NewRedisCodeStore creates a RedisCodeStore on the given client.
func NewRedisCodeStore(rdb *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{rdb: rdb}
}

func codeKey(email string) string {
	return codeKeyPrefix + email
}

// Store writes the code for email with the given TTL, replacing any
// previously issued code.
func (s *RedisCodeStore) Store(ctx context.Context, email string, code verification.Code, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, codeKey(email), code.String(), ttl).Err(); err != nil {
		return apperror.NewUnexpectedError("EVR_STORE", err)
	}
	return nil
}

// Matches compares the stored code for email with the presented one. An
// absent or expired key reads as a non-match rather than an error.
func (s *RedisCodeStore) Matches(ctx context.Context, email string, code verification.Code) (bool, error) {
	stored, err := s.rdb.Get(ctx, codeKey(email)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, apperror.NewUnexpectedError("EVR_CODE_MATCHES", err)
	}
	return stored == code.String(), nil
}

// RedisTemporaryUserStore stages temporary users: an opaque identifier bound
// to a proven email, expiring after the configured TTL.
type RedisTemporaryUserStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisTemporaryUserStore creates a RedisTemporaryUserStore. Each staged
// binding gets a fresh ttl, independent of the verification code's expiry.
func NewRedisTemporaryUserStore(rdb *redis.Client, ttl time.Duration) *RedisTemporaryUserStore {
	return &RedisTemporaryUserStore{rdb: rdb, ttl: ttl}
}

func tmpUserKey(id uuid.UUID) string {
	return tmpUserKeyPrefix + id.String()
}

// Store binds id to email for the store's TTL.
func (s *RedisTemporaryUserStore) Store(ctx context.Context, id uuid.UUID, email string) error {
	if err := s.rdb.Set(ctx, tmpUserKey(id), email, s.ttl).Err(); err != nil {
		return apperror.NewUnexpectedError("TMP_USERS_STORE", err)
	}
	return nil
}

// GetEmail returns the email staged under id. An absent or expired binding is
// the technical not-found error TEMPORARY_USER_NOT_FOUND.
func (s *RedisTemporaryUserStore) GetEmail(ctx context.Context, id uuid.UUID) (string, error) {
	email, err := s.rdb.Get(ctx, tmpUserKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", apperror.NewNotFoundError("TEMPORARY_USER_NOT_FOUND", nil)
		}
		return "", apperror.NewUnexpectedError("TMP_USERS_GET_EMAIL", err)
	}
	return email, nil
}
