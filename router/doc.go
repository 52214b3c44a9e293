// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the RentRadar API.

# Route Registration

NewRouter builds the engine services on top of a store and returns a
configured http.ServeMux:

	mux, err := router.NewRouter(store, cfg)

# Endpoints

Operational:

	GET /health
	GET /metrics

Session (Authorization: Bearer <identity token>):

	POST /session - Create or refresh the caller's profile
	GET  /me      - Caller's profile

Reports:

	GET   /reports              - Visible reports with display status
	POST  /reports              - Create (rate limited)
	GET   /reports/stream       - Websocket stream of report snapshots
	GET   /reports/{id}         - One report with display status and visibility
	PATCH /reports/{id}         - Creator edit
	POST  /reports/{id}/votes   - Cast, switch or withdraw a vote (rate limited)
	GET   /reports/{id}/my-vote - Caller's current vote

Feedback:

	POST /feedback - Submit a ticket (anonymous allowed, rate limited)

Moderation (token must carry the admin claim):

	GET  /admin/stats
	GET  /admin/reports?order=&cursor=&status=&q=
	GET  /admin/feedback?order=&cursor=&status=&q=
	POST /admin/reports/{id}/status
	POST /admin/feedback/{id}/resolved
*/
package router
