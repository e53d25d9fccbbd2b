package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://x", DSN(ClientConfig{DSN: "postgres://x", Host: "ignored"}))

	got := DSN(ClientConfig{Host: "db", User: "arb", Password: "p@ss", Database: "scans"})
	assert.Equal(t, "postgres://arb:p%40ss@db:5432/scans?sslmode=disable", got)

	got = DSN(ClientConfig{Host: "db", Port: 6543, User: "arb", Database: "scans", SSLMode: "require"})
	assert.Equal(t, "postgres://arb:@db:6543/scans?sslmode=require", got)
}

func TestMigrationNames(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_init.sql", names[0])
	assert.IsIncreasing(t, names)
}

func TestMapWriteErr(t *testing.T) {
	assert.ErrorIs(t, mapWriteErr(&pgconn.PgError{Code: "23505"}), domain.ErrAlreadyExists)

	other := &pgconn.PgError{Code: "23502"}
	assert.Equal(t, other, mapWriteErr(other))
}
