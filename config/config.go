// Package config provides configuration management for the signup backend.
// It handles loading and validation of configuration values from environment
// variables, with support for required variables, default values, and
// collective error reporting: every problem found while loading is gathered
// and returned as a single error so a misconfigured deployment fails fast
// with the full picture instead of one variable at a time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// PoolConfig represents configuration for the PostgreSQL connection pool.
type PoolConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxSize  int
	// MigrationsPath points at the directory of SQL migration files. An empty
	// value disables migrations on startup.
	MigrationsPath string
}

// RedisConfig holds connection settings for the Redis instance backing the
// verification-code and temporary-user stores.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SMTPConfig holds outbound email settings. When Host is empty the
// application falls back to a log-only sender, which is the expected setup
// for local development.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SignupConfig holds the tunables of the signup pipeline. Both TTLs are
// configurable rather than hardcoded; expiry itself is enforced by the store.
type SignupConfig struct {
	// CodeTTL bounds how long an issued verification code stays valid.
	CodeTTL time.Duration
	// TmpUserTTL bounds how long a staged temporary user may be completed.
	// Staging gets a fresh TTL; it does not inherit the code's remaining one.
	TmpUserTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	DB     *PoolConfig
	Redis  *RedisConfig
	SMTP   *SMTPConfig
	Signup *SignupConfig
	Server *ServerConfig
}

// getRequiredEnv reads a required environment variable, collecting an error
// when it is absent.
func getRequiredEnv(key string, errs *[]string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		*errs = append(*errs, fmt.Sprintf("missing required environment variable: %s", key))
		return ""
	}
	return value
}

// getOptionalEnv reads an environment variable with a default string value.
func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getOptionalEnvInt reads an environment variable parsed as an int, falling
// back to defaultValue and collecting an error when parsing fails.
func getOptionalEnvInt(key string, defaultValue int, errs *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueInt
}

// getOptionalEnvDuration reads an environment variable parsed with
// time.ParseDuration (e.g. "1h", "30m"), falling back to defaultValue and
// collecting an error when parsing fails.
func getOptionalEnvDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueDuration
}

// parsePoolSize validates and clamps the connection pool size to [5, 100].
func parsePoolSize(size int, varName string, errs *[]string) int {
	if size < 5 {
		*errs = append(*errs, fmt.Sprintf("pool size for %s (%d) is less than minimum 5, clamping to 5", varName, size))
		return 5
	}
	if size > 100 {
		*errs = append(*errs, fmt.Sprintf("pool size for %s (%d) is greater than maximum 100, clamping to 100", varName, size))
		return 100
	}
	return size
}

// LoadConfig creates an AppConfig by reading and validating environment
// variables. It collects all errors encountered and returns them as one
// aggregated error if any exist.
func LoadConfig() (*AppConfig, error) {
	var errs []string

	// Database configuration.
	db := &PoolConfig{
		Host:           getOptionalEnv("DB_HOST", "localhost"),
		Port:           getOptionalEnvInt("DB_PORT", 5432, &errs),
		User:           getRequiredEnv("DB_USER", &errs),
		Password:       getRequiredEnv("DB_PASSWORD", &errs),
		DBName:         getRequiredEnv("DB_NAME", &errs),
		MigrationsPath: getOptionalEnv("DB_MIGRATIONS_PATH", "./migrations"),
	}
	db.MaxSize = parsePoolSize(getOptionalEnvInt("DB_POOL_SIZE", 10, &errs), "DB_POOL_SIZE", &errs)

	// Redis configuration.
	redis := &RedisConfig{
		Addr:     getOptionalEnv("REDIS_ADDR", "localhost:6379"),
		Password: getOptionalEnv("REDIS_PASSWORD", ""),
		DB:       getOptionalEnvInt("REDIS_DB", 0, &errs),
	}

	// SMTP configuration. All optional: without a host the mail.LogSender is
	// used instead of a real SMTP client.
	smtp := &SMTPConfig{
		Host:     getOptionalEnv("SMTP_HOST", ""),
		Port:     getOptionalEnvInt("SMTP_PORT", 587, &errs),
		Username: getOptionalEnv("SMTP_USERNAME", ""),
		Password: getOptionalEnv("SMTP_PASSWORD", ""),
		From:     getOptionalEnv("SMTP_FROM", "no-reply@localhost"),
	}

	// Signup pipeline configuration.
	signup := &SignupConfig{
		CodeTTL:    getOptionalEnvDuration("SIGNUP_CODE_TTL", time.Hour, &errs),
		TmpUserTTL: getOptionalEnvDuration("SIGNUP_TMP_USER_TTL", time.Hour, &errs),
	}
	if signup.CodeTTL <= 0 {
		errs = append(errs, fmt.Sprintf("SIGNUP_CODE_TTL must be positive, got %s", signup.CodeTTL))
	}
	if signup.TmpUserTTL <= 0 {
		errs = append(errs, fmt.Sprintf("SIGNUP_TMP_USER_TTL must be positive, got %s", signup.TmpUserTTL))
	}

	server := &ServerConfig{
		Port: getOptionalEnv("PORT", "8080"),
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errs, "\n- "))
	}

	return &AppConfig{
		DB:     db,
		Redis:  redis,
		SMTP:   smtp,
		Signup: signup,
		Server: server,
	}, nil
}
