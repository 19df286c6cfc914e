// Package db manages SQL connections, embedded schema migrations and named queries.
//
// SQLite serves local development and tests, PostgreSQL serves production.
// Both are reached through sqlx so the store layer can share one code path.
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

const (
	maxOpenConns    = 16
	maxIdleConns    = 4
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

// DriverSQLite and DriverPostgres are the sqlx driver names Open may return.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Open connects to a sqlite:// or postgres:// URL and configures pooling.
// SQLite URLs: sqlite://file.db (relative) or sqlite:///abs/path.db.
func Open(ctx context.Context, dbURL string) (*sqlx.DB, error) {
	driverName, dataSource, err := ParseURL(dbURL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driverName == DriverSQLite {
		// A single writer avoids SQLITE_BUSY under concurrent inserts.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)
	}
	db.SetConnMaxIdleTime(connMaxIdleTime)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ParseURL maps a database URL onto a driver name and data source.
func ParseURL(dbURL string) (driverName, dataSource string, err error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid database URL: %w", err)
	}

	switch u.Scheme {
	case "sqlite":
		driverName = DriverSQLite
		if u.Host != "" {
			dataSource = u.Host + u.Path
		} else {
			dataSource = u.Path
		}
		if dataSource == "" {
			return "", "", fmt.Errorf("invalid database URL: missing sqlite path")
		}
		if u.RawQuery != "" {
			dataSource += "?" + u.RawQuery
		}
	case "postgres", "postgresql":
		driverName = DriverPostgres
		dataSource = dbURL
	default:
		return "", "", fmt.Errorf("unsupported database scheme: %s (expected sqlite or postgres)", u.Scheme)
	}

	return driverName, dataSource, nil
}
