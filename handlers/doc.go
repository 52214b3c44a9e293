// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the RentRadar API.

# Handler Types

Each handler is a struct holding the engine service it fronts and the
token verifier:

  - UserHandler: Session start and profile lookup
  - ReportHandler: Report creation, edits and public reads
  - VoteHandler: Vote casting and the caller's current vote
  - StreamHandler: Websocket stream of report snapshots
  - AdminHandler: Feedback submission and the moderation dashboard

Handlers are created via constructor functions:

	reportHandler := handlers.NewReportHandler(manager, tokens)

# Identity

Callers send "Authorization: Bearer <identity token>". Admin endpoints pass
the raw token to the moderation service, which verifies the admin claim on
every call. Engine errors are mapped to status codes by
middleware.ErrorFromErr.

# Voting

	POST /reports/{id}/votes {"vote_type": "fraud"}

Casting the category already held withdraws the vote; casting another one
switches it. The response names the transition applied.

# Report Stream

GET /reports/stream upgrades to a websocket. The server first sends a
"snapshot" message per visible report, then one message per change:
"snapshot" with the report, its display status and a visible flag, or
"removed" with only the report ID. Reports that are no longer visible are
still sent once with visible set to false.
*/
package handlers
