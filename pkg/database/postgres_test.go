package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/academic-timetable-api/pkg/config"
)

func TestDSNCarriesSessionTimeouts(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:             "db",
		Port:             5432,
		User:             "timetable",
		Password:         "p@ss word",
		Name:             "academic_timetable",
		SSLMode:          "disable",
		ApplicationName:  "academic-timetable-api",
		LockTimeout:      5 * time.Second,
		StatementTimeout: 30 * time.Second,
	})

	assert.Contains(t, dsn, "host=db port=5432 user=timetable")
	assert.Contains(t, dsn, "password='p@ss word'")
	assert.Contains(t, dsn, "application_name=academic-timetable-api")
	assert.Contains(t, dsn, "options='-c lock_timeout=5000 -c statement_timeout=30000'")
}

func TestDSNOmitsUnsetOptions(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "postgres", Name: "tt", SSLMode: "disable"})

	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=tt sslmode=disable", dsn)
}
