package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/jlym/memorywall/internal/logging"
)

// SQLiteMedium keeps values in a single records table of a SQLite file.
type SQLiteMedium struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

func NewSQLiteMedium(ctx context.Context, path string, logger *zap.Logger) (*SQLiteMedium, error) {
	logger = logging.OrNop(logger).Named("sqlite_medium")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, "creating directory for %q failed", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening database failed, path=%q", path)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		logger.Debug("setting busy_timeout failed", zap.Error(err))
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		logger.Debug("setting journal_mode=WAL failed", zap.Error(err))
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating records table failed")
	}

	return &SQLiteMedium{db: db, path: path, logger: logger}, nil
}

func (m *SQLiteMedium) Read(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := m.db.QueryRowContext(ctx, `SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	} else if err != nil {
		return nil, false, errors.Wrapf(err, "reading key %q failed", key)
	}
	return []byte(value), true, nil
}

func (m *SQLiteMedium) Write(ctx context.Context, key string, value []byte) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(value), time.Now().UTC())
	if err != nil {
		return errors.Wrapf(err, "writing key %q failed", key)
	}
	return nil
}

func (m *SQLiteMedium) Remove(ctx context.Context, key string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key); err != nil {
		return errors.Wrapf(err, "removing key %q failed", key)
	}
	return nil
}

func (m *SQLiteMedium) Keys(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT key FROM records ORDER BY key`)
	if err != nil {
		return nil, errors.Wrap(err, "listing keys failed")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.Wrap(err, "scanning key failed")
		}
		keys = append(keys, key)
	}
	return keys, errors.Wrap(rows.Err(), "listing keys failed")
}

func (m *SQLiteMedium) Close() error {
	return m.db.Close()
}

var _ Medium = (*SQLiteMedium)(nil)
