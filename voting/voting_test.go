package voting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/rentradar/apperr"
	"github.com/danielhkuo/rentradar/docstore"
	"github.com/danielhkuo/rentradar/models"
	"github.com/danielhkuo/rentradar/users"
)

var now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// flakyStore fails selected operations to simulate an unavailable backend.
type flakyStore struct {
	*docstore.MemoryStore
	failIncrement bool
	failGet       bool
}

var errBackendDown = errors.New("backend down")

func (s *flakyStore) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	if s.failIncrement {
		return errBackendDown
	}
	return s.MemoryStore.Increment(ctx, collection, id, field, delta)
}

func (s *flakyStore) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if s.failGet && collection == models.CollectionVotes {
		return docstore.Document{}, errBackendDown
	}
	return s.MemoryStore.Get(ctx, collection, id)
}

func newLedger(t *testing.T, store docstore.Store) *Ledger {
	t.Helper()
	l := NewLedger(store, NewAggregator(store), users.NewService(store))
	l.now = func() time.Time { return now }
	l.retryDelay = 0
	return l
}

func seedReport(t *testing.T, store docstore.Store, id, status string) {
	t.Helper()
	r := models.Report{
		ID:        id,
		CreatedBy: "creator",
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(-time.Hour).Add(models.ReportTTL),
		Location:  models.Location{Lat: 19.4, Lng: -99.1},
		Status:    status,
	}
	require.NoError(t, store.Put(context.Background(), models.CollectionReports, id, r.Fields(), docstore.PutOptions{}))
}

func counters(t *testing.T, store docstore.Store, id string) models.Counters {
	t.Helper()
	doc, err := store.Get(context.Background(), models.CollectionReports, id)
	require.NoError(t, err)
	return models.CountersFromFields(doc.Fields)
}

func TestCastVoteTransitions(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	defer store.Close()
	seedReport(t, store, "r1", models.StatusActive)
	l := newLedger(t, store)

	steps := []struct {
		category   string
		transition string
		want       models.Counters
		holding    *models.VoteCategory
	}{
		{"confirm", models.TransitionCreated, models.Counters{Confirmations: 1}, ptr(models.VoteConfirm)},
		{"fraud", models.TransitionSwitched, models.Counters{FraudVotes: 1}, ptr(models.VoteFraud)},
		{"inactive", models.TransitionSwitched, models.Counters{InactiveVotes: 1}, ptr(models.VoteInactive)},
		{"inactive", models.TransitionWithdrawn, models.Counters{}, nil},
		{"possible", models.TransitionCreated, models.Counters{PossibleFraudVotes: 1}, ptr(models.VotePossible)},
	}

	for i, step := range steps {
		t.Run(fmt.Sprintf("%d_%s", i, step.transition), func(t *testing.T) {
			got, err := l.CastVote(ctx, "u1", "r1", step.category)
			require.NoError(t, err)
			assert.Equal(t, step.transition, got)
			assert.Equal(t, step.want, counters(t, store, "r1"))

			mine, err := l.MyVote(ctx, "u1", "r1")
			require.NoError(t, err)
			assert.Equal(t, step.holding, mine)
		})
	}
}

func ptr(c models.VoteCategory) *models.VoteCategory { return &c }

func TestToggleIsItsOwnInverse(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	defer store.Close()
	seedReport(t, store, "r1", models.StatusActive)
	l := newLedger(t, store)

	// Another voter's state must be unaffected.
	_, err := l.CastVote(ctx, "u2", "r1", "fraud")
	require.NoError(t, err)
	before := counters(t, store, "r1")

	for _, c := range models.Categories {
		_, err := l.CastVote(ctx, "u1", "r1", string(c))
		require.NoError(t, err)
		_, err = l.CastVote(ctx, "u1", "r1", string(c))
		require.NoError(t, err)

		assert.Equal(t, before, counters(t, store, "r1"), c)
		_, err = store.Get(ctx, models.CollectionVotes, models.VoteID("r1", "u1"))
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	}
}

func TestCastVoteErrors(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	defer store.Close()
	seedReport(t, store, "active", models.StatusActive)
	seedReport(t, store, "hidden", models.StatusInactive)
	l := newLedger(t, store)

	require.NoError(t, store.Put(ctx, models.CollectionUsers, "banned", models.Profile{Status: models.UserBanned, CreatedAt: now}.Fields(), docstore.PutOptions{}))

	tests := []struct {
		name     string
		voter    string
		report   string
		category string
		wantErr  error
	}{
		{"anonymous", "", "active", "confirm", apperr.ErrUnauthenticated},
		{"unknown category", "u1", "active", "spam", apperr.ErrInvalidCategory},
		{"banned voter", "banned", "active", "confirm", apperr.ErrUnauthorized},
		{"missing report", "u1", "nope", "confirm", apperr.ErrNotFound},
		{"moderated report", "u1", "hidden", "confirm", apperr.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.CastVote(ctx, tt.voter, tt.report, tt.category)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	n, err := store.Count(ctx, models.CollectionVotes, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, models.Counters{}, counters(t, store, "active"))
}

func TestCastVoteOnExpiredReport(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	defer store.Close()
	seedReport(t, store, "r1", models.StatusActive)
	l := newLedger(t, store)
	l.now = func() time.Time { return now.Add(models.ReportTTL) }

	_, err := l.CastVote(ctx, "u1", "r1", "confirm")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStoreFailuresSurface(t *testing.T) {
	ctx := context.Background()
	mem := docstore.NewMemoryStore()
	defer mem.Close()
	store := &flakyStore{MemoryStore: mem}
	seedReport(t, store, "r1", models.StatusActive)
	l := newLedger(t, store)

	store.failGet = true
	_, err := l.CastVote(ctx, "u1", "r1", "confirm")
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.ErrorIs(t, err, errBackendDown)

	_, err = l.MyVote(ctx, "u1", "r1")
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)

	store.failGet = false
	store.failIncrement = true
	_, err = l.CastVote(ctx, "u1", "r1", "confirm")
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}

func TestAggregatorFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	defer store.Close()
	seedReport(t, store, "r1", models.StatusActive)
	agg := NewAggregator(store)

	require.NoError(t, agg.Apply(ctx, "r1", models.VoteFraud, -1))
	assert.Equal(t, models.Counters{}, counters(t, store, "r1"))

	require.NoError(t, agg.Apply(ctx, "r1", models.VoteFraud, 1))
	assert.Equal(t, int64(1), counters(t, store, "r1").FraudVotes)

	assert.ErrorIs(t, agg.Apply(ctx, "missing", models.VoteFraud, 1), apperr.ErrNotFound)
}

func TestSwitchUnderConcurrentVoters(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	defer store.Close()
	seedReport(t, store, "r1", models.StatusActive)
	l := newLedger(t, store)

	_, err := l.CastVote(ctx, "switcher", "r1", "confirm")
	require.NoError(t, err)

	const others = 40
	var wg sync.WaitGroup
	for i := 0; i < others; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.CastVote(ctx, fmt.Sprintf("voter-%d", i), "r1", "confirm")
			assert.NoError(t, err)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		transition, err := l.CastVote(ctx, "switcher", "r1", "fraud")
		assert.NoError(t, err)
		assert.Equal(t, models.TransitionSwitched, transition)
	}()
	wg.Wait()

	got := counters(t, store, "r1")
	assert.Equal(t, int64(others), got.Confirmations)
	assert.Equal(t, int64(1), got.FraudVotes)
}

func TestConcurrentCastsKeepOneVotePerVoter(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	defer store.Close()
	seedReport(t, store, "r1", models.StatusActive)
	l := newLedger(t, store)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.CastVote(ctx, "u1", "r1", string(models.Categories[i%len(models.Categories)]))
			if err != nil {
				assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
			}
		}(i)
	}
	wg.Wait()

	n, err := store.Count(ctx, models.CollectionVotes, []docstore.Predicate{docstore.Eq("voterId", "u1")})
	require.NoError(t, err)
	assert.LessOrEqual(t, n, int64(1))

	c := counters(t, store, "r1")
	for _, v := range []int64{c.Confirmations, c.PossibleFraudVotes, c.FraudVotes, c.InactiveVotes} {
		assert.GreaterOrEqual(t, v, int64(0))
	}
	assert.Equal(t, n, c.Confirmations+c.PossibleFraudVotes+c.FraudVotes+c.InactiveVotes)
}

// interleavingStore runs hook inside the first matching Increment, before
// the increment itself reaches the store.
type interleavingStore struct {
	*docstore.MemoryStore
	field string
	delta int64
	hook  func()
	once  sync.Once
}

func (s *interleavingStore) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	if field == s.field && delta == s.delta {
		s.once.Do(s.hook)
	}
	return s.MemoryStore.Increment(ctx, collection, id, field, delta)
}

func TestSwitchWaitsForPendingCreate(t *testing.T) {
	ctx := context.Background()
	mem := docstore.NewMemoryStore()
	defer mem.Close()
	store := &interleavingStore{MemoryStore: mem, field: models.VoteConfirm.Field(), delta: 1}
	seedReport(t, store, "r1", models.StatusActive)
	l := newLedger(t, store)

	var innerErr error
	store.hook = func() {
		_, innerErr = l.CastVote(ctx, "u1", "r1", "fraud")
	}

	transition, err := l.CastVote(ctx, "u1", "r1", "confirm")
	require.NoError(t, err)
	assert.Equal(t, models.TransitionCreated, transition)
	assert.ErrorIs(t, innerErr, apperr.ErrStoreUnavailable)
	assert.Equal(t, models.Counters{Confirmations: 1}, counters(t, store, "r1"))

	transition, err = l.CastVote(ctx, "u1", "r1", "fraud")
	require.NoError(t, err)
	assert.Equal(t, models.TransitionSwitched, transition)
	assert.Equal(t, models.Counters{FraudVotes: 1}, counters(t, store, "r1"))
}

func TestWithdrawWaitsForPendingSwitch(t *testing.T) {
	ctx := context.Background()
	mem := docstore.NewMemoryStore()
	defer mem.Close()
	store := &interleavingStore{MemoryStore: mem, field: models.VoteFraud.Field(), delta: 1}
	seedReport(t, store, "r1", models.StatusActive)
	l := newLedger(t, store)

	_, err := l.CastVote(ctx, "u1", "r1", "confirm")
	require.NoError(t, err)

	// A withdraw racing the second half of a switch must also wait.
	var innerErr error
	store.hook = func() {
		_, innerErr = l.CastVote(ctx, "u1", "r1", "fraud")
	}
	transition, err := l.CastVote(ctx, "u1", "r1", "fraud")
	require.NoError(t, err)
	assert.Equal(t, models.TransitionSwitched, transition)
	assert.ErrorIs(t, innerErr, apperr.ErrStoreUnavailable)
	assert.Equal(t, models.Counters{FraudVotes: 1}, counters(t, store, "r1"))

	vote, err := store.Get(ctx, models.CollectionVotes, models.VoteID("r1", "u1"))
	require.NoError(t, err)
	assert.True(t, models.VoteFromDocument(vote).Applied)
}

func TestStaleUnappliedVoteIsSettled(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	defer store.Close()
	seedReport(t, store, "r1", models.StatusActive)
	l := newLedger(t, store)

	require.NoError(t, store.Increment(ctx, models.CollectionReports, "r1", models.VoteConfirm.Field(), 1))
	stale := models.Vote{ReportID: "r1", VoterID: "u1", Category: models.VoteConfirm, UpdatedAt: now.Add(-time.Hour)}
	require.NoError(t, store.Put(ctx, models.CollectionVotes, models.VoteID("r1", "u1"), stale.Fields(), docstore.PutOptions{}))

	transition, err := l.CastVote(ctx, "u1", "r1", "confirm")
	require.NoError(t, err)
	assert.Equal(t, models.TransitionWithdrawn, transition)
	assert.Equal(t, models.Counters{}, counters(t, store, "r1"))
}
