// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/danielhkuo/rentradar/apperr"
	"github.com/danielhkuo/rentradar/auth"
)

// Identify verifies the bearer token on the request. It returns the
// identity together with the raw token, which privileged operations verify
// again themselves.
func Identify(v auth.Verifier, r *http.Request) (auth.Identity, string, error) {
	token := auth.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		// Browsers cannot set headers on websocket upgrades
		token = r.URL.Query().Get("access_token")
	}
	id, err := v.Verify(token)
	if err != nil {
		return auth.Identity{}, token, fmt.Errorf("%w: %w", apperr.ErrUnauthenticated, err)
	}
	return id, token, nil
}

// OptionalIdentity is Identify for endpoints open to anonymous callers.
// A missing token yields the zero Identity; an invalid one is still an error.
func OptionalIdentity(v auth.Verifier, r *http.Request) (auth.Identity, error) {
	id, _, err := Identify(v, r)
	if errors.Is(err, auth.ErrMissingToken) {
		return auth.Identity{}, nil
	}
	return id, err
}
