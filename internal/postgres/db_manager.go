package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jlym/memorywall/internal/logging"
)

const dbPostgres = "postgres"

// DBManager owns the lifecycle of the database that holds the records table.
type DBManager struct {
	Options *ConnStringOptions
	Logger  *zap.Logger
}

func NewDBManager(options *ConnStringOptions, logger *zap.Logger) *DBManager {
	return &DBManager{
		Options: options,
		Logger:  logging.OrNop(logger).Named("postgres"),
	}
}

// InitDB creates the database and the records table if they do not exist yet.
func (d *DBManager) InitDB(parentCtx context.Context) error {
	dbName := d.Options.database()

	postgresConn, err := d.openConn(parentCtx, dbPostgres)
	if err != nil {
		return err
	}
	defer d.closeConn(parentCtx, postgresConn)

	ctx, cancel := getQueryContext(parentCtx)
	defer cancel()

	dbExists := false
	row := postgresConn.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT datname
			FROM pg_catalog.pg_database
			WHERE datname = $1
			LIMIT 1
		);
	`, dbName)
	err = row.Scan(&dbExists)
	if err != nil {
		return errors.Wrapf(err, "checking if database %q exists failed", dbName)
	}

	if !dbExists {
		_, err = postgresConn.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s;", pgx.Identifier{dbName}.Sanitize()))
		if err != nil {
			return errors.Wrapf(err, "creating database %q failed", dbName)
		}
		d.Logger.Info("created database", zap.String("database", dbName))
	}

	recordsConn, err := d.openConn(parentCtx, dbName)
	if err != nil {
		return err
	}
	defer d.closeConn(parentCtx, recordsConn)

	ctx, cancel = getQueryContext(parentCtx)
	defer cancel()

	_, err = recordsConn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
	`)
	if err != nil {
		return errors.Wrap(err, "initializing records table failed")
	}

	return nil
}

func (d *DBManager) DropDB(parentCtx context.Context) error {
	conn, err := d.openConn(parentCtx, dbPostgres)
	if err != nil {
		return err
	}
	defer d.closeConn(parentCtx, conn)

	ctx, cancel := getQueryContext(parentCtx)
	defer cancel()

	_, err = conn.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s;", pgx.Identifier{d.Options.database()}.Sanitize()))
	if err != nil {
		return errors.Wrap(err, "dropping db failed")
	}

	return nil
}

func (d *DBManager) TruncateTables(parentCtx context.Context) error {
	conn, err := d.openConn(parentCtx, d.Options.database())
	if err != nil {
		return err
	}
	defer d.closeConn(parentCtx, conn)

	ctx, cancel := getQueryContext(parentCtx)
	defer cancel()

	_, err = conn.Exec(ctx, `
		TRUNCATE records;
	`)
	if err != nil {
		return errors.Wrap(err, "clearing records failed")
	}

	return nil
}

func (d *DBManager) openConn(ctx context.Context, dbName string) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, d.Options.GetConnString(dbName))
	if err != nil {
		return nil, errors.Wrapf(err, "opening connection failed, connString=\"%s\"", d.Options.GetDebugConnString(dbName))
	}

	return conn, nil
}

func (d *DBManager) closeConn(parentCtx context.Context, conn *pgx.Conn) {
	ctx, cancel := getQueryContext(parentCtx)
	defer cancel()

	err := conn.Close(ctx)
	if err != nil {
		d.Logger.Warn("closing connection failed", zap.Error(err))
	}
}
