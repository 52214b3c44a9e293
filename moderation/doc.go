// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package moderation backs the admin dashboard and the feedback inbox.

Every Service method that reads or changes moderation state takes the
caller's raw identity token and verifies it, including the admin claim,
on each call. A claim seen on an earlier request is never reused.

Admin tables are paged ten rows at a time in creation order. NextCursor
is an opaque token naming the last row of the page; HasMore is computed
by asking the store for one extra row. FilterReports and FilterFeedback
only narrow a page that was already loaded.

SubmitFeedback is open to anyone, signed in or not.
*/
package moderation
