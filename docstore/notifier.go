// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package docstore

import (
	"context"
	"log/slog"
	"sync"
)

const subscriberBuffer = 256

type subscriber struct {
	collection string
	where      []Predicate
	outgoing   chan Event
}

// Notifier fans change events out to in-process subscribers. Stores that
// have no native change feed publish through it after every write.
//
// A subscriber that stops draining its channel is disconnected (its channel
// is closed) instead of blocking writers; it must resubscribe and re-read.
type Notifier struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[*subscriber]struct{})}
}

// Subscribe registers a subscriber. The returned cancel func is idempotent.
func (n *Notifier) Subscribe(ctx context.Context, collection string, where []Predicate) (<-chan Event, func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, nil, ErrClosed
	}

	sub := &subscriber{
		collection: collection,
		where:      where,
		outgoing:   make(chan Event, subscriberBuffer),
	}
	n.subs[sub] = struct{}{}

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			n.remove(sub)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return sub.outgoing, cancel, nil
}

func (n *Notifier) remove(sub *subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.subs[sub]; ok {
		delete(n.subs, sub)
		close(sub.outgoing)
	}
}

// Publish delivers evt to every matching subscriber without blocking.
func (n *Notifier) Publish(evt Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for sub := range n.subs {
		if sub.collection != evt.Collection {
			continue
		}
		if evt.Kind == EventPut && !Matches(evt.Document.Fields, sub.where) {
			continue
		}
		select {
		case sub.outgoing <- Event{Kind: evt.Kind, Collection: evt.Collection, Document: evt.Document.Clone()}:
		default:
			slog.Warn("subscriber overflow, disconnecting", "collection", evt.Collection)
			delete(n.subs, sub)
			close(sub.outgoing)
		}
	}
}

// Close disconnects every subscriber.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	for sub := range n.subs {
		delete(n.subs, sub)
		close(sub.outgoing)
	}
}
