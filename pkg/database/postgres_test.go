package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/course-market-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:             "db",
		Port:             5432,
		User:             "market",
		Password:         "it's secret",
		Name:             "course_market",
		SSLMode:          "disable",
		ApplicationName:  "course-market-api",
		StatementTimeout: 15 * time.Second,
	})

	assert.Equal(t,
		`host=db port=5432 user=market password='it\'s secret' dbname=course_market sslmode=disable timezone=UTC application_name=course-market-api statement_timeout=15000`,
		dsn)
}

func TestDSNOmitsOptionalSettings(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "course_market", SSLMode: "require"})

	assert.Contains(t, dsn, "password=''")
	assert.NotContains(t, dsn, "application_name")
	assert.NotContains(t, dsn, "statement_timeout")
}
