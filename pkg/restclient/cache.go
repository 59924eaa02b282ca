// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package restclient

import (
	"sync"
	"time"

	"github.com/haldor/chatterm/internal/model"
)

// userCache is the TTL-bounded, shared in-memory id→User map spec.md §3
// and §4.B describe. Reads take the read lock and replace takes the write
// lock. A stale cache is refreshed through singleflight.Group.Do at the call
// site in users.go, which re-checks freshness inside the call, so concurrent
// callers racing a cold cache collapse into one list_users request
// (testable property 5 in spec.md §8).
type userCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cachedUser
	now     func() time.Time
}

type cachedUser struct {
	user       model.User
	insertedAt time.Time
}

func newUserCache(ttl time.Duration) userCache {
	return userCache{
		ttl:     ttl,
		entries: make(map[string]cachedUser),
		now:     time.Now,
	}
}

// get returns a fresh cached User, or ok=false if absent or stale.
func (c *userCache) get(id string) (model.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, found := c.entries[id]
	if !found || c.now().Sub(entry.insertedAt) > c.ttl {
		return model.User{}, false
	}
	return entry.user, true
}

// freshSince returns the insertion time of the oldest entry and reports
// whether the whole cache was populated within TTL, without issuing any
// network call. Used to decide whether get_users_cached needs a refresh at
// all.
func (c *userCache) freshSince() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) == 0 {
		return time.Time{}, false
	}
	var oldest time.Time
	for _, e := range c.entries {
		if oldest.IsZero() || e.insertedAt.Before(oldest) {
			oldest = e.insertedAt
		}
	}
	return oldest, c.now().Sub(oldest) <= c.ttl
}

// replace installs a freshly-fetched user list, timestamped now.
func (c *userCache) replace(users []model.User) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedUser, len(users))
	for _, u := range users {
		c.entries[u.ID] = cachedUser{user: u, insertedAt: now}
	}
}

// snapshot returns a copy of the full id→User map.
func (c *userCache) snapshot() map[string]model.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]model.User, len(c.entries))
	for id, e := range c.entries {
		out[id] = e.user
	}
	return out
}
