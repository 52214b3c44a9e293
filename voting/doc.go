// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package voting records votes and maintains the per-report counters.

# Ledger

Each voter holds at most one vote per report, stored under the id
"<reportId>:<voterId>". CastVote moves between states:

	none      + cast X -> X        created    counter[X] +1
	X         + cast X -> none     withdrawn  counter[X] -1
	X         + cast Y -> Y        switched   counter[X] -1, counter[Y] +1

Vote writes are conditional on the state that was read. If a concurrent
request from the same voter got there first, the ledger re-reads and
retries with a short backoff, up to five times. Deltas are only applied
after the vote write succeeds, so a retry never applies a delta twice.

A vote is written unapplied and marked applied once its deltas have
landed. Withdraw and switch only act on an applied vote, so a decrement
never runs ahead of the increment it cancels. A vote left unapplied by a
failed counter write is settled after thirty seconds.

A switch writes its two deltas separately. Readers may briefly see one
without the other; the display status is recomputed on every snapshot.

# Aggregator

The Aggregator is the only writer of counters. It issues one atomic
increment per delta and never overwrites a value. Decrements below zero
are refused by the store and leave the counter at zero.
*/
package voting
