// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"embed"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
	_ "modernc.org/sqlite"
)

// Supported database types for SQL backends.
const (
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open connects to the database and verifies the connection.
func Open(dbType, url string) (*sqlx.DB, error) {
	var driver string
	switch dbType {
	case TypePostgres:
		driver = "postgres"
	case TypeSQLite:
		driver = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported SQL database type %q", dbType)
	}

	conn, err := sqlx.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dbType == TypeSQLite {
		// SQLite only supports one writer at a time
		conn.SetMaxOpenConns(1)
		if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	return conn, nil
}

// Migrate applies every pending migration.
func Migrate(conn *sqlx.DB, dbType string) error {
	dialect := "postgres"
	if dbType == TypeSQLite {
		dialect = "sqlite3"
	}

	source := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}
	n, err := migrate.Exec(conn.DB, dialect, source, migrate.Up)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	if n > 0 {
		slog.Info("applied migrations", "count", n)
	}
	return nil
}
