package postgres_test

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	p "github.com/jlym/memorywall/internal/postgres"
)

func TestGetConnString(t *testing.T) {
	opts := &p.ConnStringOptions{
		Host:     "db.internal",
		Port:     5433,
		UserName: "memorywall",
		Password: "p@ss&word",
	}

	connString := opts.GetConnString("memorywall")
	require.Equal(t, "postgres://db.internal:5433/memorywall?password=p%40ss%26word&user=memorywall", connString)

	// The escaped password survives pgx's parser.
	cfg, err := pgx.ParseConfig(connString)
	require.NoError(t, err)
	require.Equal(t, "p@ss&word", cfg.Password)
	require.Equal(t, "memorywall", cfg.User)
	require.Equal(t, uint16(5433), cfg.Port)

	require.Equal(t,
		"postgres://db.internal:5433/memorywall?password=REDACTED&user=memorywall",
		opts.GetDebugConnString("memorywall"))
}

func TestGetConnStringDefaultsUser(t *testing.T) {
	opts := &p.ConnStringOptions{Host: "localhost", Port: 5432}
	require.Equal(t, "postgres://localhost:5432/postgres?password=&user=postgres", opts.GetConnString("postgres"))
}
