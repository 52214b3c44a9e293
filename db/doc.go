// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens SQL connections and applies the schema migrations.

# Opening a Connection

Open accepts the configured database type and URL:

	conn, err := db.Open("postgres", "postgres://...")
	conn, err := db.Open("sqlite", "file:rentradar.db")

SQLite connections are limited to a single writer to avoid SQLITE_BUSY.

# Migrations

Migrate applies the embedded migrations in migrations/ with sql-migrate:

	if err := db.Migrate(conn, "postgres"); err != nil {
		log.Fatal(err)
	}

Safe to call on every start - applied migrations are tracked in the
gorp_migrations table.

# Tables

  - reports: Sightings, moderation flag and the four vote counters
  - votes: One row per (report, voter), id "<report>:<voter>"
  - feedback: Moderation tickets
  - users: Profiles and account status

Timestamps are stored as BIGINT Unix milliseconds so both dialects
order and compare them identically.

# Indexes

  - reports.status
  - reports.(created_at, id) for keyset pagination
  - votes.(report_id, voter_id) (unique)
  - feedback.resolved
  - feedback.(created_at, id)
*/
package db
