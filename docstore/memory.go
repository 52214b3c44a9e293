// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is a process-local Store. It backs tests and the "memory"
// database type; all data is lost on exit.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Fields
	notifier    *Notifier
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Fields),
		notifier:    NewNotifier(),
	}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Fields: f.Clone()}, nil
}

func (s *MemoryStore) Put(ctx context.Context, collection, id string, fields Fields, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collection(collection)
	cur, exists := coll[id]
	if !MatchesPrecondition(cur, exists, opts.If) {
		return ErrPreconditionFailed
	}
	next := fields.Clone()
	if opts.Merge && exists {
		next = cur.Clone()
		for k, v := range fields {
			next[k] = v
		}
	}
	coll[id] = next

	// Publishing under the lock keeps snapshots in write order.
	s.notifier.Publish(Event{Kind: EventPut, Collection: collection, Document: Document{ID: id, Fields: next}})
	return nil
}

func (s *MemoryStore) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	next := cur.Int(field) + delta
	if next < 0 {
		return ErrPreconditionFailed
	}
	cur[field] = next

	s.notifier.Publish(Event{Kind: EventPut, Collection: collection, Document: Document{ID: id, Fields: cur}})
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string, cond *Precondition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collection(collection)
	cur, exists := coll[id]
	if !MatchesPrecondition(cur, exists, cond) {
		return ErrPreconditionFailed
	}
	if !exists {
		return nil
	}
	delete(coll, id)

	s.notifier.Publish(Event{Kind: EventDelete, Collection: collection, Document: Document{ID: id}})
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, q Query) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if q.Limit <= 0 {
		return Page{}, fmt.Errorf("query %s: limit must be positive", q.Collection)
	}

	s.mu.RLock()
	var docs []Document
	for id, f := range s.collections[q.Collection] {
		if Matches(f, q.Where) {
			docs = append(docs, Document{ID: id, Fields: f.Clone()})
		}
	}
	s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		c, _ := Compare(docs[i].Fields[q.OrderBy.Field], docs[j].Fields[q.OrderBy.Field])
		if c == 0 {
			c = strings.Compare(docs[i].ID, docs[j].ID)
		}
		if q.OrderBy.Desc {
			return c > 0
		}
		return c < 0
	})

	page := Page{}
	for _, d := range docs {
		if !After(d, q.OrderBy, q.After) {
			continue
		}
		page.Documents = append(page.Documents, d)
		if len(page.Documents) == q.Limit {
			page.Next = CursorFor(d, q.OrderBy)
			break
		}
	}
	return page, nil
}

func (s *MemoryStore) Count(ctx context.Context, collection string, where []Predicate) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, f := range s.collections[collection] {
		if Matches(f, where) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, collection string, where []Predicate) (<-chan Event, func(), error) {
	return s.notifier.Subscribe(ctx, collection, where)
}

func (s *MemoryStore) Close() error {
	s.notifier.Close()
	return nil
}

// collection must be called with mu held for writing.
func (s *MemoryStore) collection(name string) map[string]Fields {
	coll, ok := s.collections[name]
	if !ok {
		coll = make(map[string]Fields)
		s.collections[name] = coll
	}
	return coll
}
