// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines domain, request and response types for the API and
their stored document form.

# Domain Types

  - Report: geolocated sighting with moderation status and vote counters
  - Vote: one voter's current category on one report
  - Feedback: moderation ticket
  - Profile: user profile and account status
  - Counters: the four per-report vote tallies

Each domain type converts to and from docstore documents:

	r := models.ReportFromDocument(doc)
	fields := r.Fields()

# Vote Categories

VoteCategory is a closed set. Field maps each category to its counter:

	VoteConfirm  -> "confirmations"
	VotePossible -> "possibleFraudVotes"
	VoteFraud    -> "fraudVotes"
	VoteInactive -> "inactiveVotes"

ParseCategory rejects anything else with apperr.ErrInvalidCategory.

# Display Status

DisplayStatus is derived by package classify and never stored:
neutral, confirm, possible, fraud, inactive.

# Constants

	ReportTTL     = 14 days
	AdminPageSize = 10

Report status: active, inactive. User status: active, restricted, banned.

# Timestamps

Now returns UTC truncated to milliseconds so values round-trip through every
backend unchanged.
*/
package models
