// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package docstore defines the document store contract the engine persists
through, plus an in-memory implementation.

# Documents

A Document is an ID plus flat Fields. Nested values use dotted paths:

	docstore.Fields{"location.lat": 19.43, "status": "active"}

Accessors (String, Int, Time, ...) tolerate absent and null values.

# Writes

  - Put replaces or merges a document, optionally guarded by a Precondition
  - Increment atomically adds a delta to one integer field, never below zero
  - Delete removes a document, optionally guarded by a Precondition

A failed guard returns ErrPreconditionFailed.

# Reads

Query returns one page ordered by a field with the ID as tie-breaker.
Page.Next resumes strictly after the last document, so inserts ahead of the
cursor never shift later pages. Count evaluates predicates server-side.

# Subscriptions

	events, cancel, err := store.Subscribe(ctx, "reports", where)
	defer cancel()

Each event carries the full snapshot after the change. Delivery is
at-least-once; treat every snapshot as authoritative.

# Implementations

  - MemoryStore: process-local, used by tests and the "memory" backend
  - sqlstore: PostgreSQL or SQLite tables created by package db
  - mongostore: MongoDB with change streams
*/
package docstore
