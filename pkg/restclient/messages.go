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

// MessagesClient exposes the message/reaction write operations, all routed
// through the shared retry combinator per spec.md §4.B / §9.
type MessagesClient struct{ c *Client }

// Send posts text to channel, returning the server-assigned ts
// (spec.md §4.B "send_message").
func (mc *MessagesClient) Send(ctx context.Context, cred, channel, text string) (string, error) {
	if text == "" {
		return "", apperr.Validation("message text must be non-empty")
	}
	return mc.post(ctx, cred, "/chat.postMessage", map[string]string{
		"channel": channel,
		"text":    text,
	})
}

// SendToThread posts text as a reply to threadTS
// (spec.md §4.B "send_message_to_thread").
func (mc *MessagesClient) SendToThread(ctx context.Context, cred, channel, threadTS, text string) (string, error) {
	if text == "" {
		return "", apperr.Validation("message text must be non-empty")
	}
	return mc.post(ctx, cred, "/chat.postMessage", map[string]string{
		"channel":   channel,
		"text":      text,
		"thread_ts": threadTS,
	})
}

func (mc *MessagesClient) post(ctx context.Context, cred, path string, form map[string]string) (string, error) {
	resp, err := mc.c.withRetry(ctx, func(ctx context.Context) (*resty.Response, error) {
		return mc.c.request(ctx).
			SetHeader("Authorization", "Bearer "+cred).
			SetBody(form).
			Post(path)
	})
	if err != nil {
		return "", err
	}

	var body struct {
		envelope
		TS string `json:"ts"`
	}
	if uerr := json.Unmarshal(resp.Body(), &body); uerr != nil {
		return "", apperr.ServerError("malformed " + path + " response")
	}
	return body.TS, nil
}

// Update edits an own message's text (spec.md §4.B "update_message").
func (mc *MessagesClient) Update(ctx context.Context, cred, channel, ts, text string) (*model.Message, error) {
	resp, err := mc.c.withRetry(ctx, func(ctx context.Context) (*resty.Response, error) {
		return mc.c.request(ctx).
			SetHeader("Authorization", "Bearer "+cred).
			SetBody(map[string]string{"channel": channel, "ts": ts, "text": text}).
			Post("/chat.update")
	})
	if err != nil {
		return nil, err
	}

	var body struct {
		envelope
		Message model.Message `json:"message"`
	}
	if uerr := json.Unmarshal(resp.Body(), &body); uerr != nil {
		return nil, apperr.ServerError("malformed chat.update response")
	}
	body.Message.Edited = true
	return &body.Message, nil
}

// Delete removes an own message (spec.md §4.B "delete_message").
func (mc *MessagesClient) Delete(ctx context.Context, cred, channel, ts string) error {
	_, err := mc.c.withRetry(ctx, func(ctx context.Context) (*resty.Response, error) {
		return mc.c.request(ctx).
			SetHeader("Authorization", "Bearer "+cred).
			SetBody(map[string]string{"channel": channel, "ts": ts}).
			Post("/chat.delete")
	})
	return err
}

// AddReaction attaches emoji to the message at ts (spec.md §4.B "add_reaction").
func (mc *MessagesClient) AddReaction(ctx context.Context, cred, channel, ts, emoji string) error {
	return mc.reaction(ctx, cred, channel, ts, emoji, "/reactions.add")
}

// RemoveReaction detaches emoji from the message at ts (spec.md §4.B "remove_reaction").
func (mc *MessagesClient) RemoveReaction(ctx context.Context, cred, channel, ts, emoji string) error {
	return mc.reaction(ctx, cred, channel, ts, emoji, "/reactions.remove")
}

func (mc *MessagesClient) reaction(ctx context.Context, cred, channel, ts, emoji, path string) error {
	_, err := mc.c.withRetry(ctx, func(ctx context.Context) (*resty.Response, error) {
		return mc.c.request(ctx).
			SetHeader("Authorization", "Bearer "+cred).
			SetBody(map[string]string{"channel": channel, "timestamp": ts, "name": emoji}).
			Post(path)
	})
	return err
}
