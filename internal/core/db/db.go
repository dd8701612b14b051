// Package db provides the import audit store: connection management,
// migrations and persistence of bulk import validation results.
//
// Supports SQLite (development) and PostgreSQL (production) via sqlx.
// Schema changes ship as embedded, checksummed SQL migrations.
package db

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// PostgreSQL pool limits per process. SQLite always uses one connection
// because it serializes writers.
const (
	maxOpenConns    = 16
	maxIdleConns    = 4
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
	pingTimeout     = 10 * time.Second
)

// Open connects to the audit database and verifies the connection.
//
// Accepted forms:
//
//	sqlite://relative/file.db, sqlite:///absolute/file.db
//	postgres://user@host:5432/dbname?sslmode=disable (also postgresql://)
//	path/to/file.db (no scheme: SQLite)
func Open(dbURL string) (*sqlx.DB, error) {
	driverName, dataSource, err := dataSourceOf(dbURL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driverName == "sqlite3" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)
		db.SetConnMaxIdleTime(connMaxIdleTime)
		db.SetConnMaxLifetime(connMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// dataSourceOf maps a database URL to a sql driver name and DSN.
func dataSourceOf(dbURL string) (driver, dsn string, err error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid database URL: %w", err)
	}

	switch u.Scheme {
	case "":
		return "sqlite3", dbURL, nil
	case "sqlite":
		// sqlite://file.db puts the first segment in Host
		return "sqlite3", u.Host + u.Path, nil
	case "postgres", "postgresql":
		return "postgres", dbURL, nil
	default:
		return "", "", fmt.Errorf("unsupported database scheme: %s (expected sqlite or postgres)", u.Scheme)
	}
}
