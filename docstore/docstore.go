// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package docstore

import (
	"context"
	"errors"
)

var (
	ErrNotFound           = errors.New("document not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrUnknownField       = errors.New("unknown field")
	ErrClosed             = errors.New("store closed")
)

// Fields holds a document's top-level values keyed by field path.
// Nested values use dotted paths ("location.lat").
type Fields map[string]any

// Document is one stored record.
type Document struct {
	ID     string
	Fields Fields
}

// Op is a comparison operator used in predicates.
type Op string

const (
	OpEq  Op = "=="
	OpNe  Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// Predicate filters documents by comparing one field with a value.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, v any) Predicate { return Predicate{Field: field, Op: OpEq, Value: v} }
func Gt(field string, v any) Predicate { return Predicate{Field: field, Op: OpGt, Value: v} }
func Lt(field string, v any) Predicate { return Predicate{Field: field, Op: OpLt, Value: v} }

// Order sorts query results by one field. Ties are broken by document ID in
// the same direction.
type Order struct {
	Field string
	Desc  bool
}

// Cursor marks the last document of a page: its order-by value and ID.
// Queries resume strictly after it.
type Cursor struct {
	Value any
	ID    string
}

// Query selects a page of documents from one collection.
type Query struct {
	Collection string
	Where      []Predicate
	OrderBy    Order
	Limit      int
	After      *Cursor
}

// Page is the result of a Query. Next is set when the page is full.
type Page struct {
	Documents []Document
	Next      *Cursor
}

// Precondition guards a write against the current state of the document.
type Precondition struct {
	// MustNotExist fails the write when the document already exists.
	MustNotExist bool
	// Match fails the write unless the document exists and every listed
	// field equals the given value.
	Match Fields
}

// PutOptions controls Put. Without Merge the document is replaced.
type PutOptions struct {
	Merge bool
	If    *Precondition
}

type EventKind int

const (
	EventPut EventKind = iota
	EventDelete
)

// Event is a change notification. For EventPut, Document is the complete
// current snapshot; for EventDelete only Document.ID is set.
type Event struct {
	Kind       EventKind
	Collection string
	Document   Document
}

// Store is the persistence contract used by the engine.
//
// Increment adds delta to one integer field as a single atomic operation and
// refuses to take the field below zero (ErrPreconditionFailed). Subscribe
// delivers full snapshots, at least once, for documents matching where after
// the change; the stream ends when cancel is called or ctx is done.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Put(ctx context.Context, collection, id string, fields Fields, opts PutOptions) error
	Increment(ctx context.Context, collection, id, field string, delta int64) error
	Delete(ctx context.Context, collection, id string, cond *Precondition) error
	Query(ctx context.Context, q Query) (Page, error)
	Count(ctx context.Context, collection string, where []Predicate) (int64, error)
	Subscribe(ctx context.Context, collection string, where []Predicate) (<-chan Event, func(), error)
	Close() error
}

// Clone returns a shallow copy of the fields.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Clone returns a copy of the document that shares no map with the original.
func (d Document) Clone() Document {
	return Document{ID: d.ID, Fields: d.Fields.Clone()}
}
