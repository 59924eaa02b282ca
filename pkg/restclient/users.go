// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package restclient

import (
	"context"
	"encoding/json"

	"github.com/haldor/chatterm/internal/apperr"
	"github.com/haldor/chatterm/internal/model"
)

// UsersClient exposes user listing and the TTL cache (spec.md §4.B).
type UsersClient struct{ c *Client }

// List fetches every user and refreshes the cache (spec.md §4.B "list_users").
func (uc *UsersClient) List(ctx context.Context, cred string) ([]model.User, error) {
	return uc.c.fetchUsers(ctx, cred)
}

// GetUsersCached serves the id→User map from cache if fresh (within the
// 600s TTL), otherwise issues exactly one list_users request even under
// concurrent callers (spec.md §4.B, property 5 in spec.md §8).
//
// The freshness check and refresh follow the classical double-checked
// pattern the spec names: a read-lock hit returns immediately; a miss
// falls through to singleflight.Group.Do, which collapses every caller
// racing the same cold cache into a single in-flight list_users call and
// fans the one result back out to all of them.
func (uc *UsersClient) GetUsersCached(ctx context.Context, cred string) (map[string]model.User, error) {
	if _, fresh := uc.c.cache.freshSince(); fresh {
		return uc.c.cache.snapshot(), nil
	}

	v, err, _ := uc.c.sf.Do("list_users", func() (interface{}, error) {
		// Re-check freshness now that we hold the singleflight slot: another
		// caller may have already completed the refresh while we were
		// waiting to enter Do.
		if _, fresh := uc.c.cache.freshSince(); fresh {
			return uc.c.cache.snapshot(), nil
		}
		if _, err := uc.c.fetchUsers(ctx, cred); err != nil {
			return nil, err
		}
		return uc.c.cache.snapshot(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]model.User), nil
}

func (c *Client) fetchUsers(ctx context.Context, cred string) ([]model.User, error) {
	resp, err := c.request(ctx).
		SetHeader("Authorization", "Bearer "+cred).
		Get("/users.list")
	if cerr := classify(resp, err); cerr != nil {
		return nil, cerr
	}

	var body struct {
		envelope
		Members []model.User `json:"members"`
	}
	if uerr := json.Unmarshal(resp.Body(), &body); uerr != nil {
		return nil, apperr.ServerError("malformed users.list response")
	}

	c.cache.replace(body.Members)
	return body.Members, nil
}
