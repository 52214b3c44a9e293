// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/rentradar/apperr"
	"github.com/danielhkuo/rentradar/docstore"
	"github.com/danielhkuo/rentradar/metrics"
	"github.com/danielhkuo/rentradar/models"
	"github.com/danielhkuo/rentradar/reports"
	"github.com/danielhkuo/rentradar/users"
)

// maxAttempts bounds how often a transition is re-read and retried after
// a concurrent request from the same voter changed the vote first, or while
// that request's counter deltas are still landing.
const maxAttempts = 5

// retryDelay is the base backoff between attempts.
const retryDelay = 20 * time.Millisecond

// staleAfter is how long a vote may stay unapplied before it is treated as
// settled. Only a transition whose counter write failed leaves one behind.
const staleAfter = 30 * time.Second

var errVoteContended = errors.New("vote changed concurrently, try again")

// Ledger keeps at most one vote per (report, voter) and drives the
// aggregator with the counter deltas of each transition.
type Ledger struct {
	store      docstore.Store
	agg        *Aggregator
	users      *users.Service
	now        func() time.Time
	retryDelay time.Duration
}

func NewLedger(store docstore.Store, agg *Aggregator, users *users.Service) *Ledger {
	return &Ledger{store: store, agg: agg, users: users, now: models.Now, retryDelay: retryDelay}
}

// CastVote records voterID's vote of category on the report:
//   - no vote yet: create it and increment the category's counter
//   - same category: withdraw, deleting the vote and decrementing
//   - other category: switch, decrementing the old counter and
//     incrementing the new one as two separate writes
//
// It returns the transition applied.
func (l *Ledger) CastVote(ctx context.Context, voterID, reportID, category string) (string, error) {
	if voterID == "" {
		return "", apperr.ErrUnauthenticated
	}
	cat, err := models.ParseCategory(category)
	if err != nil {
		return "", err
	}
	if err := l.users.RequireActive(ctx, voterID); err != nil {
		return "", err
	}
	if err := l.requireVisible(ctx, reportID); err != nil {
		return "", err
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := l.backoff(ctx, attempt); err != nil {
				return "", err
			}
		}
		transition, err := l.transition(ctx, voterID, reportID, cat)
		if errors.Is(err, docstore.ErrPreconditionFailed) {
			metrics.VoteRetries.Inc()
			slog.Debug("vote changed concurrently, retrying", "report_id", reportID, "voter", voterID, "attempt", attempt)
			continue
		}
		if err != nil {
			return "", err
		}
		metrics.VoteTransitions.WithLabelValues(transition, string(cat)).Inc()
		slog.Info("vote applied", "report_id", reportID, "voter", voterID, "category", cat, "transition", transition)
		return transition, nil
	}
	return "", apperr.Store("cast vote", errVoteContended)
}

func (l *Ledger) backoff(ctx context.Context, attempt int) error {
	if l.retryDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(l.retryDelay * time.Duration(attempt-1))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// transition reads the current vote and applies one guarded step. The vote
// is written unapplied, its counter deltas follow, then it is marked
// applied. A vote that is not yet applied cannot be withdrawn or switched,
// so no decrement ever runs ahead of the increment it cancels.
//
// docstore.ErrPreconditionFailed means the vote changed since the read, or
// is still unapplied, and the step should be retried.
func (l *Ledger) transition(ctx context.Context, voterID, reportID string, cat models.VoteCategory) (string, error) {
	id := models.VoteID(reportID, voterID)
	doc, err := l.store.Get(ctx, models.CollectionVotes, id)
	if errors.Is(err, docstore.ErrNotFound) {
		vote := models.Vote{ReportID: reportID, VoterID: voterID, Category: cat, UpdatedAt: l.now()}
		err := l.store.Put(ctx, models.CollectionVotes, id, vote.Fields(),
			docstore.PutOptions{If: &docstore.Precondition{MustNotExist: true}})
		if err != nil {
			return "", storeErr("create vote", err)
		}
		if err := l.agg.Apply(ctx, reportID, cat, 1); err != nil {
			return "", err
		}
		return models.TransitionCreated, l.settle(ctx, id, cat)
	}
	if err != nil {
		return "", apperr.Store("get vote", err)
	}

	vote := models.VoteFromDocument(doc)
	current := vote.Category
	if !vote.Applied {
		if l.now().Sub(vote.UpdatedAt) < staleAfter {
			return "", docstore.ErrPreconditionFailed
		}
		slog.Warn("settling stale vote", "report_id", reportID, "voter", voterID, "category", current)
		if err := l.settle(ctx, id, current); err != nil {
			return "", err
		}
		return "", docstore.ErrPreconditionFailed
	}
	holds := &docstore.Precondition{Match: docstore.Fields{"voteType": string(current), "applied": true}}

	if current == cat {
		if err := l.store.Delete(ctx, models.CollectionVotes, id, holds); err != nil {
			return "", storeErr("withdraw vote", err)
		}
		return models.TransitionWithdrawn, l.agg.Apply(ctx, reportID, cat, -1)
	}

	update := docstore.Fields{"voteType": string(cat), "updatedAt": l.now(), "applied": false}
	if err := l.store.Put(ctx, models.CollectionVotes, id, update, docstore.PutOptions{Merge: true, If: holds}); err != nil {
		return "", storeErr("switch vote", err)
	}
	// An unknown stored category has no counter to decrement.
	if _, err := models.ParseCategory(string(current)); err == nil {
		if err := l.agg.Apply(ctx, reportID, current, -1); err != nil {
			return "", err
		}
	}
	if err := l.agg.Apply(ctx, reportID, cat, 1); err != nil {
		return "", err
	}
	return models.TransitionSwitched, l.settle(ctx, id, cat)
}

// settle marks an unapplied vote of category as applied. A vote that has
// meanwhile been settled by someone else is left alone.
func (l *Ledger) settle(ctx context.Context, id string, cat models.VoteCategory) error {
	err := l.store.Put(ctx, models.CollectionVotes, id, docstore.Fields{"applied": true}, docstore.PutOptions{
		Merge: true,
		If:    &docstore.Precondition{Match: docstore.Fields{"voteType": string(cat), "applied": false}},
	})
	if err != nil && !errors.Is(err, docstore.ErrPreconditionFailed) {
		return apperr.Store("settle vote", err)
	}
	return nil
}

// MyVote returns the voter's current category on the report, or nil.
func (l *Ledger) MyVote(ctx context.Context, voterID, reportID string) (*models.VoteCategory, error) {
	if voterID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	doc, err := l.store.Get(ctx, models.CollectionVotes, models.VoteID(reportID, voterID))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Store("get vote", err)
	}
	cat := models.VoteFromDocument(doc).Category
	return &cat, nil
}

func (l *Ledger) requireVisible(ctx context.Context, reportID string) error {
	doc, err := l.store.Get(ctx, models.CollectionReports, reportID)
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: report %s", apperr.ErrNotFound, reportID)
	}
	if err != nil {
		return apperr.Store("get report", err)
	}
	if !reports.Visible(models.ReportFromDocument(doc), l.now()) {
		return fmt.Errorf("%w: report %s is no longer visible", apperr.ErrNotFound, reportID)
	}
	return nil
}

// storeErr passes precondition failures through for retry and wraps the rest.
func storeErr(op string, err error) error {
	if errors.Is(err, docstore.ErrPreconditionFailed) {
		return err
	}
	return apperr.Store(op, err)
}
