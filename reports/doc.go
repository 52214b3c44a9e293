// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package reports manages the report lifecycle.

# States

	active -> inactive   (moderation)
	inactive -> active   (moderation)
	active -> expired    (derived when now >= expiresAt, never stored)

Expiry is fixed at creation to createdAt + 14 days. Expired reports are
kept but excluded from public reads.

# Operations

  - Create: validates identity, account status, location, phone and content
  - Edit: creator only, replaces price/phone/description
  - SetModerationStatus: elevated identities only
  - Get, ListVisible

Counters are written only by package voting.
*/
package reports
