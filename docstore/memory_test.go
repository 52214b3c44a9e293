package docstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_, err := s.Get(ctx, "reports", "r1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "reports", "r1", Fields{"status": "active", "price": "$10"}, PutOptions{}))
	require.NoError(t, s.Put(ctx, "reports", "r1", Fields{"price": "$12"}, PutOptions{Merge: true}))

	doc, err := s.Get(ctx, "reports", "r1")
	require.NoError(t, err)
	assert.Equal(t, "active", doc.Fields.String("status"))
	assert.Equal(t, "$12", doc.Fields.String("price"))

	// Replace drops fields that are not supplied.
	require.NoError(t, s.Put(ctx, "reports", "r1", Fields{"price": "$15"}, PutOptions{}))
	doc, err = s.Get(ctx, "reports", "r1")
	require.NoError(t, err)
	assert.Empty(t, doc.Fields.String("status"))

	// Mutating the returned document does not leak into the store.
	doc.Fields["price"] = "changed"
	doc, _ = s.Get(ctx, "reports", "r1")
	assert.Equal(t, "$15", doc.Fields.String("price"))
}

func TestMemoryStorePreconditions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	create := PutOptions{If: &Precondition{MustNotExist: true}}
	require.NoError(t, s.Put(ctx, "votes", "r1:u1", Fields{"voteType": "confirm"}, create))
	assert.ErrorIs(t, s.Put(ctx, "votes", "r1:u1", Fields{"voteType": "fraud"}, create), ErrPreconditionFailed)

	match := func(v string) *Precondition { return &Precondition{Match: Fields{"voteType": v}} }
	assert.ErrorIs(t, s.Put(ctx, "votes", "r1:u1", Fields{"voteType": "fraud"}, PutOptions{Merge: true, If: match("possible")}), ErrPreconditionFailed)
	require.NoError(t, s.Put(ctx, "votes", "r1:u1", Fields{"voteType": "fraud"}, PutOptions{Merge: true, If: match("confirm")}))

	assert.ErrorIs(t, s.Delete(ctx, "votes", "r1:u1", match("confirm")), ErrPreconditionFailed)
	require.NoError(t, s.Delete(ctx, "votes", "r1:u1", match("fraud")))
	assert.ErrorIs(t, s.Delete(ctx, "votes", "r1:u1", match("fraud")), ErrPreconditionFailed)
	assert.NoError(t, s.Delete(ctx, "votes", "r1:u1", nil))
}

func TestMemoryStoreIncrementFloor(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	assert.ErrorIs(t, s.Increment(ctx, "reports", "missing", "fraudVotes", 1), ErrNotFound)

	require.NoError(t, s.Put(ctx, "reports", "r1", Fields{"fraudVotes": int64(0)}, PutOptions{}))
	require.NoError(t, s.Increment(ctx, "reports", "r1", "fraudVotes", 1))
	require.NoError(t, s.Increment(ctx, "reports", "r1", "fraudVotes", -1))
	assert.ErrorIs(t, s.Increment(ctx, "reports", "r1", "fraudVotes", -1), ErrPreconditionFailed)

	doc, err := s.Get(ctx, "reports", "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), doc.Fields.Int("fraudVotes"))
}

func TestMemoryStoreConcurrentIncrement(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()
	require.NoError(t, s.Put(ctx, "reports", "r1", Fields{"confirmations": int64(0)}, PutOptions{}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Increment(ctx, "reports", "r1", "confirmations", 1))
		}()
	}
	wg.Wait()

	doc, _ := s.Get(ctx, "reports", "r1")
	assert.Equal(t, int64(50), doc.Fields.Int("confirmations"))
}

func TestMemoryStoreQueryPagination(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		status := "active"
		if i%3 == 0 {
			status = "inactive"
		}
		require.NoError(t, s.Put(ctx, "reports", fmt.Sprintf("r%d", i), Fields{
			"status":    status,
			"createdAt": base.Add(time.Duration(i) * time.Hour),
		}, PutOptions{}))
	}

	order := Order{Field: "createdAt", Desc: true}
	page, err := s.Query(ctx, Query{Collection: "reports", OrderBy: order, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page.Documents, 3)
	assert.Equal(t, "r6", page.Documents[0].ID)
	require.NotNil(t, page.Next)

	// An insert sorting before the cursor does not shift the next page.
	require.NoError(t, s.Put(ctx, "reports", "r9", Fields{"status": "active", "createdAt": base.Add(99 * time.Hour)}, PutOptions{}))

	page, err = s.Query(ctx, Query{Collection: "reports", OrderBy: order, Limit: 3, After: page.Next})
	require.NoError(t, err)
	ids := []string{}
	for _, d := range page.Documents {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"r3", "r2", "r1"}, ids)

	page, err = s.Query(ctx, Query{
		Collection: "reports",
		Where:      []Predicate{Eq("status", "active")},
		OrderBy:    Order{Field: "createdAt"},
		Limit:      10,
	})
	require.NoError(t, err)
	assert.Len(t, page.Documents, 5)
	assert.Nil(t, page.Next)

	n, err := s.Count(ctx, "reports", []Predicate{Eq("status", "inactive")})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = s.Query(ctx, Query{Collection: "reports", Limit: 0})
	assert.Error(t, err)
}

func TestMemoryStoreSubscribe(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	events, cancel, err := s.Subscribe(ctx, "reports", []Predicate{Eq("status", "active")})
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "feedback", "f1", Fields{"resolved": false}, PutOptions{}))
	require.NoError(t, s.Put(ctx, "reports", "r1", Fields{"status": "inactive"}, PutOptions{}))
	require.NoError(t, s.Put(ctx, "reports", "r2", Fields{"status": "active", "fraudVotes": int64(0)}, PutOptions{}))
	require.NoError(t, s.Increment(ctx, "reports", "r2", "fraudVotes", 1))

	evt := <-events
	assert.Equal(t, EventPut, evt.Kind)
	assert.Equal(t, "r2", evt.Document.ID)
	assert.Equal(t, int64(0), evt.Document.Fields.Int("fraudVotes"))

	evt = <-events
	assert.Equal(t, int64(1), evt.Document.Fields.Int("fraudVotes"))

	cancel()
	cancel()
	_, open := <-events
	assert.False(t, open)
}

func TestSubscribeEndsWithContext(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	ctx, cancelCtx := context.WithCancel(context.Background())
	events, _, err := s.Subscribe(ctx, "reports", nil)
	require.NoError(t, err)

	cancelCtx()
	select {
	case _, open := <-events:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after context cancellation")
	}
}
