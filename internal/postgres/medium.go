package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/jlym/memorywall/internal/storage"
	"github.com/jlym/memorywall/internal/util"
)

// Medium stores record-store values in the records table of a Postgres database.
type Medium struct {
	DBPool *pgxpool.Pool
	Clock  util.Clock
}

// Enforce that Medium implements storage.Medium.
var _ storage.Medium = &Medium{}

func NewMedium(parentCtx context.Context, connOptions *ConnStringOptions) (*Medium, error) {
	ctx, cancel := getQueryContext(parentCtx)
	defer cancel()

	dbName := connOptions.database()
	cfg, err := pgxpool.ParseConfig(connOptions.GetConnString(dbName))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing connString failed, connString=\"%s\"", connOptions.GetDebugConnString(dbName))
	}
	cfg.MaxConns = 4
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement

	dbPool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "creating connection pool failed, connString=\"%s\"", connOptions.GetDebugConnString(dbName))
	}

	return &Medium{
		DBPool: dbPool,
		Clock:  util.NewRealClock(),
	}, nil
}

func (p *Medium) Close() error {
	p.DBPool.Close()
	return nil
}

func (p *Medium) Read(parentCtx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := getQueryContext(parentCtx)
	defer cancel()

	var value string
	err := p.DBPool.QueryRow(ctx, `
		SELECT value
		FROM records
		WHERE key = $1
		LIMIT 1;
	`, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	} else if err != nil {
		return nil, false, errors.Wrapf(err, "reading key %q failed", key)
	}
	return []byte(value), true, nil
}

func (p *Medium) Write(parentCtx context.Context, key string, value []byte) error {
	ctx, cancel := getQueryContext(parentCtx)
	defer cancel()

	_, err := p.DBPool.Exec(ctx, `
		INSERT INTO records (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at;
	`, key, string(value), p.Clock.NowUtc())
	if err != nil {
		return errors.Wrapf(err, "writing key %q failed", key)
	}
	return nil
}

func (p *Medium) Remove(parentCtx context.Context, key string) error {
	ctx, cancel := getQueryContext(parentCtx)
	defer cancel()

	if _, err := p.DBPool.Exec(ctx, `DELETE FROM records WHERE key = $1;`, key); err != nil {
		return errors.Wrapf(err, "removing key %q failed", key)
	}
	return nil
}

func (p *Medium) Keys(parentCtx context.Context) ([]string, error) {
	ctx, cancel := getQueryContext(parentCtx)
	defer cancel()

	rows, err := p.DBPool.Query(ctx, `SELECT key FROM records ORDER BY key;`)
	if err != nil {
		return nil, errors.Wrap(err, "listing keys failed")
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrap(err, "listing keys failed")
	}
	return keys, nil
}

// UpdatedAt reports when key was last written.
func (p *Medium) UpdatedAt(parentCtx context.Context, key string) (time.Time, bool, error) {
	ctx, cancel := getQueryContext(parentCtx)
	defer cancel()

	var updatedAt time.Time
	err := p.DBPool.QueryRow(ctx, `SELECT updated_at FROM records WHERE key = $1;`, key).Scan(&updatedAt)
	if err == pgx.ErrNoRows {
		return time.Time{}, false, nil
	} else if err != nil {
		return time.Time{}, false, errors.Wrapf(err, "reading updated_at of key %q failed", key)
	}
	return updatedAt.UTC(), true, nil
}

func getQueryContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parentCtx, 10*time.Second)
}
