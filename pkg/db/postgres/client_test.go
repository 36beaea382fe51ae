package postgres

import (
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	require.Equal(t, 5*time.Minute, ParseDuration("5m", time.Hour))
	require.Equal(t, time.Hour, ParseDuration("", time.Hour))
	require.Equal(t, time.Hour, ParseDuration("soon", time.Hour))
}

func TestDefaultPoolConfig(t *testing.T) {
	t.Setenv("POSTGRES_MAX_CONNS", "12")
	t.Setenv("POSTGRES_CONN_MAX_LIFETIME", "30m")

	cfg := DefaultPoolConfig("loader")
	require.Equal(t, int32(12), cfg.MaxConns)
	require.Equal(t, 30*time.Minute, cfg.ConnMaxLifetime)
	require.Equal(t, "loader", cfg.Component)
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "dim_status_one_current_idx"}
	require.True(t, IsUniqueViolation(dup))
	require.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", dup)))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23514"}))
	require.False(t, IsUniqueViolation(nil))
}
