package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/course-market-api/pkg/config"
)

const pingTimeout = 5 * time.Second

// DSN renders the lib/pq keyword/value connection string. Sessions run in UTC
// so purchase timestamps and the pending monitor cutoff compare consistently.
func DSN(cfg config.DatabaseConfig) string {
	parts := []string{
		kv("host", cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		kv("user", cfg.User),
		kv("password", cfg.Password),
		kv("dbname", cfg.Name),
		kv("sslmode", cfg.SSLMode),
		"timezone=UTC",
	}
	if cfg.ApplicationName != "" {
		parts = append(parts, kv("application_name", cfg.ApplicationName))
	}
	if cfg.StatementTimeout > 0 {
		parts = append(parts, fmt.Sprintf("statement_timeout=%d", cfg.StatementTimeout.Milliseconds()))
	}
	return strings.Join(parts, " ")
}

// kv quotes values that lib/pq would otherwise split on.
func kv(key, value string) string {
	if value == "" || strings.ContainsAny(value, ` '\`) {
		escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
		return fmt.Sprintf("%s='%s'", key, escaped)
	}
	return key + "=" + value
}

// NewPostgres returns a configured PostgreSQL client.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	db.SetConnMaxLifetime(lifetime)
	db.SetConnMaxIdleTime(lifetime / 2)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}

	return db, nil
}
