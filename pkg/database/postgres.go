package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/academic-timetable-api/pkg/config"
)

// NewPostgres opens the pool used by the scheduling engine and verifies it within
// cfg.ConnectTimeout.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := sqlx.ConnectContext(connectCtx, "postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect postgres %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)
	}

	return db, nil
}

// DSN renders the lib/pq keyword/value connection string. Lock and statement timeouts are
// sent as session options so every scheduling transaction inherits them.
func DSN(cfg config.DatabaseConfig) string {
	parts := []string{
		dsnPair("host", cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		dsnPair("user", cfg.User),
		dsnPair("password", cfg.Password),
		dsnPair("dbname", cfg.Name),
		dsnPair("sslmode", cfg.SSLMode),
	}
	if cfg.ApplicationName != "" {
		parts = append(parts, dsnPair("application_name", cfg.ApplicationName))
	}

	var options []string
	if cfg.LockTimeout > 0 {
		options = append(options, fmt.Sprintf("-c lock_timeout=%d", cfg.LockTimeout.Milliseconds()))
	}
	if cfg.StatementTimeout > 0 {
		options = append(options, fmt.Sprintf("-c statement_timeout=%d", cfg.StatementTimeout.Milliseconds()))
	}
	if len(options) > 0 {
		parts = append(parts, dsnPair("options", strings.Join(options, " ")))
	}

	return strings.Join(parts, " ")
}

func dsnPair(key, value string) string {
	if value == "" || strings.ContainsAny(value, " '\\") {
		value = "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value) + "'"
	}
	return key + "=" + value
}
