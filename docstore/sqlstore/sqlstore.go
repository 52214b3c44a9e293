// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/danielhkuo/rentradar/docstore"
)

const lockStripes = 64

// Store implements docstore.Store on the tables created by db.Migrate.
// Change events come from an in-process notifier, so subscribers only see
// writes made through this Store.
type Store struct {
	db       *sqlx.DB
	notifier *docstore.Notifier
	locks    [lockStripes]sync.Mutex
}

var _ docstore.Store = (*Store)(nil)

// New wraps an open, migrated connection.
func New(conn *sqlx.DB) *Store {
	return &Store{db: conn, notifier: docstore.NewNotifier()}
}

// lock serializes write+publish per document so snapshots reach
// subscribers in write order.
func (s *Store) lock(collection, id string) func() {
	h := fnv.New32a()
	h.Write([]byte(collection))
	h.Write([]byte{0})
	h.Write([]byte(id))
	mu := &s.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	t, err := lookupTable(collection)
	if err != nil {
		return docstore.Document{}, err
	}
	query := s.db.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", t.selectList(), t.name))
	return s.scanOne(t, s.db.QueryRowxContext(ctx, query, id))
}

func (s *Store) scanOne(t *table, row *sqlx.Row) (docstore.Document, error) {
	var id string
	targets := t.scanTargets(&id)
	if err := row.Scan(targets...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, err
	}
	return t.document(id, targets), nil
}

type assignment struct {
	col   column
	value any
}

// assignments encodes fields in a stable column order.
func (t *table) assignments(fields docstore.Fields) ([]assignment, error) {
	out := make([]assignment, 0, len(fields))
	for field, v := range fields {
		col, err := t.column(field)
		if err != nil {
			return nil, err
		}
		if col.name == "id" {
			continue
		}
		enc, err := col.encode(v)
		if err != nil {
			return nil, err
		}
		out = append(out, assignment{col: col, value: enc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].col.name < out[j].col.name })
	return out, nil
}

// matchClause renders a Match precondition as extra WHERE terms.
func (t *table) matchClause(match docstore.Fields) (string, []any, error) {
	var (
		terms []string
		args  []any
	)
	as, err := t.assignments(match)
	if err != nil {
		return "", nil, err
	}
	for _, a := range as {
		if a.value == nil {
			terms = append(terms, a.col.name+" IS NULL")
			continue
		}
		terms = append(terms, a.col.name+" = ?")
		args = append(args, a.value)
	}
	if len(terms) == 0 {
		return "", nil, nil
	}
	return " AND " + strings.Join(terms, " AND "), args, nil
}

func insertSQL(t *table, id string, as []assignment, onConflict string) (string, []any) {
	cols := []string{"id"}
	marks := []string{"?"}
	args := []any{id}
	for _, a := range as {
		cols = append(cols, a.col.name)
		marks = append(marks, "?")
		args = append(args, a.value)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) %s RETURNING %s",
		t.name, strings.Join(cols, ", "), strings.Join(marks, ", "), onConflict, t.selectList())
	return q, args
}

func (s *Store) Put(ctx context.Context, collection, id string, fields docstore.Fields, opts docstore.PutOptions) error {
	t, err := lookupTable(collection)
	if err != nil {
		return err
	}
	as, err := t.assignments(fields)
	if err != nil {
		return err
	}

	unlock := s.lock(collection, id)
	defer unlock()

	var doc docstore.Document
	switch {
	case opts.If != nil && opts.If.MustNotExist:
		q, args := insertSQL(t, id, as, "ON CONFLICT (id) DO NOTHING")
		doc, err = s.scanOne(t, s.db.QueryRowxContext(ctx, s.db.Rebind(q), args...))
	case opts.Merge && opts.If != nil:
		doc, err = s.update(ctx, t, id, as, opts.If.Match)
	case opts.Merge:
		sets := make([]string, 0, len(as))
		for _, a := range as {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", a.col.name, a.col.name))
		}
		conflict := "ON CONFLICT (id) DO NOTHING"
		if len(sets) > 0 {
			conflict = "ON CONFLICT (id) DO UPDATE SET " + strings.Join(sets, ", ")
		}
		q, args := insertSQL(t, id, as, conflict)
		doc, err = s.scanOne(t, s.db.QueryRowxContext(ctx, s.db.Rebind(q), args...))
		if errors.Is(err, docstore.ErrNotFound) {
			// Nothing to merge into an existing row.
			doc, err = s.Get(ctx, collection, id)
		}
	default:
		doc, err = s.replace(ctx, t, id, as, opts.If)
	}
	if errors.Is(err, docstore.ErrNotFound) {
		return docstore.ErrPreconditionFailed
	}
	if err != nil {
		return err
	}

	s.notifier.Publish(docstore.Event{Kind: docstore.EventPut, Collection: collection, Document: doc})
	return nil
}

// update merges fields into an existing row that satisfies match.
func (s *Store) update(ctx context.Context, t *table, id string, as []assignment, match docstore.Fields) (docstore.Document, error) {
	cond, condArgs, err := t.matchClause(match)
	if err != nil {
		return docstore.Document{}, err
	}
	sets := make([]string, 0, len(as))
	args := make([]any, 0, len(as)+len(condArgs)+1)
	for _, a := range as {
		sets = append(sets, a.col.name+" = ?")
		args = append(args, a.value)
	}
	if len(sets) == 0 {
		// No-op update that still checks the precondition.
		sets = append(sets, "id = id")
	}
	args = append(args, id)
	args = append(args, condArgs...)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?%s RETURNING %s",
		t.name, strings.Join(sets, ", "), cond, t.selectList())
	return s.scanOne(t, s.db.QueryRowxContext(ctx, s.db.Rebind(q), args...))
}

// replace swaps the whole row inside one transaction; columns that are not
// supplied fall back to their defaults.
func (s *Store) replace(ctx context.Context, t *table, id string, as []assignment, cond *docstore.Precondition) (docstore.Document, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	del := fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.name)
	args := []any{id}
	if cond != nil {
		clause, condArgs, err := t.matchClause(cond.Match)
		if err != nil {
			return docstore.Document{}, err
		}
		del += clause
		args = append(args, condArgs...)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(del), args...)
	if err != nil {
		return docstore.Document{}, err
	}
	if cond != nil {
		if n, err := res.RowsAffected(); err != nil {
			return docstore.Document{}, err
		} else if n == 0 {
			return docstore.Document{}, docstore.ErrPreconditionFailed
		}
	}

	q, insArgs := insertSQL(t, id, as, "")
	doc, err := s.scanOne(t, tx.QueryRowxContext(ctx, tx.Rebind(q), insArgs...))
	if err != nil {
		return docstore.Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return docstore.Document{}, fmt.Errorf("failed to commit: %w", err)
	}
	return doc, nil
}

func (s *Store) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	t, err := lookupTable(collection)
	if err != nil {
		return err
	}
	col, err := t.column(field)
	if err != nil {
		return err
	}
	if col.kind != kindInt {
		return fmt.Errorf("field %s is not an integer", field)
	}

	unlock := s.lock(collection, id)
	defer unlock()

	q := fmt.Sprintf("UPDATE %s SET %s = %s + ? WHERE id = ? AND %s + ? >= 0 RETURNING %s",
		t.name, col.name, col.name, col.name, t.selectList())
	doc, err := s.scanOne(t, s.db.QueryRowxContext(ctx, s.db.Rebind(q), delta, id, delta))
	if errors.Is(err, docstore.ErrNotFound) {
		exists, err := s.exists(ctx, t, id)
		if err != nil {
			return err
		}
		if exists {
			return docstore.ErrPreconditionFailed
		}
		return docstore.ErrNotFound
	}
	if err != nil {
		return err
	}

	s.notifier.Publish(docstore.Event{Kind: docstore.EventPut, Collection: collection, Document: doc})
	return nil
}

func (s *Store) exists(ctx context.Context, t *table, id string) (bool, error) {
	var n int
	q := s.db.Rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", t.name))
	if err := s.db.GetContext(ctx, &n, q, id); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Delete(ctx context.Context, collection, id string, cond *docstore.Precondition) error {
	t, err := lookupTable(collection)
	if err != nil {
		return err
	}

	unlock := s.lock(collection, id)
	defer unlock()

	if cond != nil && cond.MustNotExist {
		exists, err := s.exists(ctx, t, id)
		if err != nil {
			return err
		}
		if exists {
			return docstore.ErrPreconditionFailed
		}
		return nil
	}

	q := fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.name)
	args := []any{id}
	if cond != nil {
		clause, condArgs, err := t.matchClause(cond.Match)
		if err != nil {
			return err
		}
		q += clause
		args = append(args, condArgs...)
	}
	var deleted string
	err = s.db.GetContext(ctx, &deleted, s.db.Rebind(q+" RETURNING id"), args...)
	if errors.Is(err, sql.ErrNoRows) {
		if cond != nil {
			return docstore.ErrPreconditionFailed
		}
		return nil
	}
	if err != nil {
		return err
	}

	s.notifier.Publish(docstore.Event{Kind: docstore.EventDelete, Collection: collection, Document: docstore.Document{ID: id}})
	return nil
}

// whereClause renders predicates as "WHERE ..." with placeholders.
func (t *table) whereClause(where []docstore.Predicate) (string, []any, error) {
	var (
		terms []string
		args  []any
	)
	for _, p := range where {
		col, err := t.column(p.Field)
		if err != nil {
			return "", nil, err
		}
		v, err := col.encode(p.Value)
		if err != nil {
			return "", nil, err
		}
		switch {
		case v == nil && p.Op == docstore.OpEq:
			terms = append(terms, col.name+" IS NULL")
		case v == nil && p.Op == docstore.OpNe:
			terms = append(terms, col.name+" IS NOT NULL")
		case p.Op == docstore.OpNe:
			terms = append(terms, fmt.Sprintf("(%s IS NULL OR %s <> ?)", col.name, col.name))
			args = append(args, v)
		default:
			op := string(p.Op)
			if p.Op == docstore.OpEq {
				op = "="
			}
			terms = append(terms, fmt.Sprintf("%s %s ?", col.name, op))
			args = append(args, v)
		}
	}
	if len(terms) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(terms, " AND "), args, nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) (docstore.Page, error) {
	if q.Limit <= 0 {
		return docstore.Page{}, fmt.Errorf("query %s: limit must be positive", q.Collection)
	}
	t, err := lookupTable(q.Collection)
	if err != nil {
		return docstore.Page{}, err
	}
	orderField := q.OrderBy.Field
	if orderField == "" {
		orderField = "id"
	}
	orderCol, err := t.column(orderField)
	if err != nil {
		return docstore.Page{}, err
	}

	where, args, err := t.whereClause(q.Where)
	if err != nil {
		return docstore.Page{}, err
	}

	cmp, dir := ">", "ASC"
	if q.OrderBy.Desc {
		cmp, dir = "<", "DESC"
	}
	if q.After != nil {
		v, err := orderCol.encode(q.After.Value)
		if err != nil {
			return docstore.Page{}, err
		}
		keyset := fmt.Sprintf("(%s %s ? OR (%s = ? AND id %s ?))", orderCol.name, cmp, orderCol.name, cmp)
		if where == "" {
			where = " WHERE " + keyset
		} else {
			where += " AND " + keyset
		}
		args = append(args, v, v, q.After.ID)
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s %s, id %s LIMIT %d",
		t.selectList(), t.name, where, orderCol.name, dir, dir, q.Limit)
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return docstore.Page{}, err
	}
	defer rows.Close()

	page := docstore.Page{}
	for rows.Next() {
		var id string
		targets := t.scanTargets(&id)
		if err := rows.Scan(targets...); err != nil {
			return docstore.Page{}, err
		}
		page.Documents = append(page.Documents, t.document(id, targets))
	}
	if err := rows.Err(); err != nil {
		return docstore.Page{}, err
	}
	if len(page.Documents) == q.Limit {
		last := page.Documents[len(page.Documents)-1]
		page.Next = docstore.CursorFor(last, docstore.Order{Field: orderField, Desc: q.OrderBy.Desc})
		if orderField == "id" {
			page.Next.Value = last.ID
		}
	}
	return page, nil
}

func (s *Store) Count(ctx context.Context, collection string, where []docstore.Predicate) (int64, error) {
	t, err := lookupTable(collection)
	if err != nil {
		return 0, err
	}
	clause, args, err := t.whereClause(where)
	if err != nil {
		return 0, err
	}
	var n int64
	q := s.db.Rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s%s", t.name, clause))
	if err := s.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) Subscribe(ctx context.Context, collection string, where []docstore.Predicate) (<-chan docstore.Event, func(), error) {
	if _, err := lookupTable(collection); err != nil {
		return nil, nil, err
	}
	return s.notifier.Subscribe(ctx, collection, where)
}

// Close disconnects subscribers and closes the connection.
func (s *Store) Close() error {
	s.notifier.Close()
	return s.db.Close()
}
