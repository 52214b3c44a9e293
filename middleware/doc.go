// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status,
duration_ms), and records request count and latency by route pattern.

# CORS Middleware

Enable cross-origin requests for the web client:

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")
	middleware.ErrorFromErr(w, err)

ErrorFromErr maps apperr sentinels onto 401, 403, 400, 404 and 503.

# Identity

Identify reads the bearer token from the Authorization header, or the
access_token query parameter for websocket upgrades, and verifies it.
OptionalIdentity allows anonymous callers.

# Rate Limiting

RateLimiter keeps a token bucket per client, keyed by the salted hash of
GetClientIP, in a bounded LRU:

	limiter, err := middleware.NewRateLimiter(30, salt, 0)
	mux.HandleFunc("POST /reports", middleware.WithLogging(limiter.Limit(reportHandler.CreateReport)))
*/
package middleware
