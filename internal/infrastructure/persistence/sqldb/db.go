// Package sqldb implements the repositories on database/sql. The same SQL
// runs on the sqlite (modernc), sqlite3 (mattn, cgo) and mysql drivers;
// only the schema differs per dialect.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite  = "sqlite"
	DriverSQLite3 = "sqlite3"
	DriverMySQL   = "mysql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type DB struct {
	*sql.DB
	Driver string
}

func Open(driver, dsn string) (*DB, error) {
	var err error

	switch driver {
	case DriverSQLite, DriverSQLite3:
		dsn = sqliteDSN(driver, dsn)
	case DriverMySQL:
		dsn, err = mysqlDSN(dsn)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{DB: db, Driver: driver}, nil
}

// sqliteDSN adds a busy timeout so concurrent writers wait for the lock
// instead of failing immediately.
func sqliteDSN(driver, dsn string) string {
	if strings.Contains(dsn, "?") || dsn == ":memory:" {
		return dsn
	}
	if driver == DriverSQLite3 {
		return dsn + "?_busy_timeout=5000&_journal_mode=WAL"
	}
	return dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// mysqlDSN forces the options the repositories depend on: DATETIME
// columns scanned as time.Time in UTC, and RowsAffected counting matched
// rows so an unchanged UPDATE is not mistaken for a missing row.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}
