// Package db provides database connectivity for the signup backend: the
// pgx connection pool used by the relational repositories, the Redis client
// backing the short-lived verification state, and schema migrations.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres driver for migrate
	_ "github.com/golang-migrate/migrate/v4/source/file"       // file-based migrations
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq" // database/sql driver used by migrate's postgres driver

	"github.com/user/zwitter-go/apperror"
	"github.com/user/zwitter-go/config"
)

// NewPool establishes a pgx connection pool from the given configuration and
// verifies connectivity with a ping before returning it.
func NewPool(cfg *config.PoolConfig) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable&pool_max_conns=%d",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.MaxSize,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, apperror.NewTechnicalError(fmt.Errorf("error parsing DSN for database %s: %w", cfg.DBName, err))
	}
	poolConfig.MaxConns = int32(cfg.MaxSize)
	poolConfig.MaxConnIdleTime = 10 * time.Minute
	poolConfig.MaxConnLifetime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, apperror.NewTechnicalError(fmt.Errorf("error creating pgxpool for database %s: %w", cfg.DBName, err))
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, apperror.NewTechnicalError(fmt.Errorf("error connecting to database %s: %w", cfg.DBName, err))
	}

	return pool, nil
}

// migrateDSN constructs the DSN golang-migrate's postgres driver expects.
func migrateDSN(cfg *config.PoolConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)
}

// RunMigrations applies pending migrations from cfg.MigrationsPath. A run
// with no new migrations is not an error. An empty path disables migrations.
func RunMigrations(cfg *config.PoolConfig) error {
	if cfg.MigrationsPath == "" {
		return nil
	}

	m, err := migrate.New("file://"+cfg.MigrationsPath, migrateDSN(cfg))
	if err != nil {
		return apperror.NewTechnicalError(fmt.Errorf("failed to create migrator: %w", err))
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			if srcErr != nil {
				fmt.Printf("Warning: error closing migration source: %v\n", srcErr)
			}
			if dbErr != nil {
				fmt.Printf("Warning: error closing migration database instance: %v\n", dbErr)
			}
		}
	}()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return apperror.NewTechnicalError(fmt.Errorf("failed to run migrations: %w", err))
	}

	return nil
}
