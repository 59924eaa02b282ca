// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package restclient

import (
	"context"
	"encoding/json"

	"github.com/go-resty/resty/v2"

	"github.com/haldor/chatterm/internal/apperr"
	"github.com/haldor/chatterm/internal/model"
)

// ChannelsClient exposes channel listing and history operations.
type ChannelsClient struct{ c *Client }

// List returns every channel the credential's user is joined to
// (spec.md §4.B "list_channels" — "joined-only filter applied").
func (cc *ChannelsClient) List(ctx context.Context, cred string) ([]model.Channel, error) {
	resp, err := cc.c.request(ctx).
		SetHeader("Authorization", "Bearer "+cred).
		SetQueryParam("joined_only", "true").
		Get("/conversations.list")
	if cerr := classify(resp, err); cerr != nil {
		return nil, cerr
	}

	var body struct {
		envelope
		Channels []model.Channel `json:"channels"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, apperr.ServerError("malformed conversations.list response")
	}
	return body.Channels, nil
}

// History returns up to limit messages (1..=200) from channel in
// chronologically-ascending order (spec.md §4.B "get_history"). It refreshes
// the user cache when an author is missing from it, but does not set display
// names on the returned messages; callers join on AuthorID through
// Users.GetUsersCached. Neither the history fetch nor the cache refresh goes
// through the retry combinator.
func (cc *ChannelsClient) History(ctx context.Context, cred, channel string, limit int) ([]model.Message, error) {
	if limit < 1 || limit > 200 {
		return nil, apperr.Validation("limit must be between 1 and 200")
	}

	resp, err := cc.c.request(ctx).
		SetHeader("Authorization", "Bearer "+cred).
		SetQueryParam("channel", channel).
		SetQueryParam("limit", itoa(limit)).
		Get("/conversations.history")
	if cerr := classify(resp, err); cerr != nil {
		return nil, cerr
	}

	var body struct {
		envelope
		Messages []model.Message `json:"messages"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, apperr.ServerError("malformed conversations.history response")
	}

	msgs := ascendingByTS(body.Messages)
	cc.c.enrichAuthors(ctx, cred, msgs)
	return msgs, nil
}

// GetThreadReplies returns the ordered replies under parentTS
// (spec.md §4.B "get_thread_replies"). Routed through the retry combinator
// per spec.md §4.B's explicit carve-out for the thread-replies read path.
func (cc *ChannelsClient) GetThreadReplies(ctx context.Context, cred, channel, parentTS string) ([]model.Message, error) {
	resp, err := cc.c.withRetry(ctx, func(ctx context.Context) (*resty.Response, error) {
		return cc.c.request(ctx).
			SetHeader("Authorization", "Bearer "+cred).
			SetQueryParam("channel", channel).
			SetQueryParam("ts", parentTS).
			Get("/conversations.replies")
	})
	if err != nil {
		return nil, err
	}

	var body struct {
		envelope
		Messages []model.Message `json:"messages"`
	}
	if uerr := json.Unmarshal(resp.Body(), &body); uerr != nil {
		return nil, apperr.ServerError("malformed conversations.replies response")
	}

	msgs := ascendingByTS(body.Messages)
	cc.c.enrichAuthors(ctx, cred, msgs)
	return msgs, nil
}
