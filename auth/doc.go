// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth issues and verifies identity tokens and hashes client IPs.

# Identity Tokens

Tokens are HS256 JWTs. The subject is the user id; "name" carries the
display name and "admin" the elevated claim:

	tokens := auth.NewTokens(secret)
	token, err := tokens.Issue(auth.Identity{UID: "u1", Elevated: true}, time.Hour)
	id, err := tokens.Verify(token)

Verify checks the signature, the algorithm and the expiry. Callers pass the
token on every request with "Authorization: Bearer <token>"; BearerToken
extracts it from the header.

The elevated claim is never cached. Privileged operations verify the
caller's token again when they run, so revoking admin only requires
issuing a new token without the claim and letting the old one expire.

# IP Hashing

For privacy-preserving rate limiting:

	hash := auth.HashIP(ipAddress, salt)

Returns first 8 bytes (16 hex chars) of HMAC-SHA256.
*/
package auth
