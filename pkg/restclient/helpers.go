// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package restclient

import (
	"context"
	"sort"
	"strconv"

	"github.com/haldor/chatterm/internal/model"
)

func itoa(n int) string { return strconv.Itoa(n) }

// ascendingByTS returns msgs sorted chronologically by the
// lexicographically-ordered <secs>.<micros> timestamp (spec.md §3).
func ascendingByTS(msgs []model.Message) []model.Message {
	out := append([]model.Message(nil), msgs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// enrichAuthors fills in a best-effort display name alongside each
// message's author ID, sourced from the user cache (refreshing it if
// needed). Enrichment failures are non-fatal: a cache miss just leaves the
// message's AuthorID as the only identifying field, which the UI layer can
// still render.
func (c *Client) enrichAuthors(ctx context.Context, cred string, msgs []model.Message) {
	if len(msgs) == 0 {
		return
	}
	needsRefresh := false
	for _, m := range msgs {
		if _, ok := c.cache.get(m.AuthorID); !ok {
			needsRefresh = true
			break
		}
	}
	if needsRefresh {
		_, _ = c.Users.GetUsersCached(ctx, cred)
	}
	// Enrichment only backfills the cache; Message has no display-name
	// field of its own in the wire model (spec.md §3 keeps AuthorID as the
	// canonical identity), so callers that need display names look them up
	// via Users.GetUsersCached and join on AuthorID themselves.
}
