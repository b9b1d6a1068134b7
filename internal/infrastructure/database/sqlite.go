package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"ransomguard/pkg/logger"
)

// SQLiteDB is the embedded store used for local runs and tests
type SQLiteDB struct {
	db     *sql.DB
	path   string
	logger *logger.Logger
}

// NewSQLite opens (creating if needed) the database file at path and applies
// the schema. The special path ":memory:" opens a private in-memory database.
func NewSQLite(ctx context.Context, path string, log *logger.Logger) (*SQLiteDB, error) {
	if path == "" {
		return nil, errors.New("sqlite path not specified")
	}
	log = log.WithComponent("sqlite")

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrapf(err, "failed to create database directory: %s", dir)
			}
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", path)
	}
	// a single writer avoids SQLITE_BUSY under concurrent inserts
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "failed to ping database: %s", path)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "failed to apply %q", p)
		}
	}

	db := &SQLiteDB{db: conn, path: path, logger: log}
	if err := db.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("opened SQLite database")
	return db, nil
}

// Migrate creates the scan tables if they do not exist yet
func (db *SQLiteDB) Migrate(ctx context.Context) error {
	ddl, err := schema(DriverSQLite)
	if err != nil {
		return err
	}
	if _, err := db.db.ExecContext(ctx, ddl); err != nil {
		return errors.Wrapf(err, "failed to create database schema in: %s", db.path)
	}
	db.logger.Debug().Msg("sqlite schema applied")
	return nil
}

// DB returns the underlying handle
func (db *SQLiteDB) DB() *sql.DB {
	return db.db
}

// Ping checks the database connection
func (db *SQLiteDB) Ping(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

// Close closes the database
func (db *SQLiteDB) Close() error {
	db.logger.Info().Msg("closing SQLite database")
	return db.db.Close()
}
