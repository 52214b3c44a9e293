// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the RentRadar API server.

RentRadar lets renters flag suspicious rental listings. Each report
collects community votes (confirm, possible fraud, fraud, inactive), and a
display status is derived from the vote counters whenever a report is read.

# Starting the Server

The server reads an optional .env file, then flags and environment:

	TOKEN_SECRET=... IP_HASH_SALT=... DATABASE_URL=rentradar.db go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -token-secret ... -ip-salt ...

# Configuration

Required settings:

  - DATABASE_URL (-d): connection string or SQLite path (not needed for -t memory)
  - TOKEN_SECRET (-token-secret): identity token signing secret
  - IP_HASH_SALT (-ip-salt): salt for rate limiter keys

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite, postgres, mongo or memory (default: sqlite)
  - MONGO_DB (-mongo-db): MongoDB database name (default: rentradar)
  - VOTE_RATE_PER_MIN (-rate): per-client write budget (default: 30)

# Architecture

  - handlers: HTTP request handlers (session, reports, votes, stream, admin)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, identity, rate limiting, JSON helpers
  - voting: Vote ledger and counter aggregator
  - classify: Display status classifier
  - reports: Report lifecycle
  - moderation: Admin dashboard queries and feedback
  - users: Profiles and account status
  - docstore: Store contract, with memory, SQL and MongoDB implementations
  - backend: Store selection from configuration
  - db: SQL connections and migrations
  - auth: Identity tokens
  - metrics: Prometheus collectors
  - apperr: Error taxonomy
  - models: Domain, request and response types
  - cliparse: Configuration parsing

The rentradarctl command (cmd/rentradarctl) mints tokens, changes account
status and runs migrations.
*/
package main
