// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package restclient

import (
	"context"
	"encoding/json"

	"github.com/haldor/chatterm/internal/apperr"
)

// AuthClient exposes chat-service authentication test operations.
type AuthClient struct{ c *Client }

// AuthResult is the outcome of a successful TestAuth call.
type AuthResult struct {
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
}

// TestAuth validates cred and returns the associated team and user IDs
// (spec.md §4.B "test_auth"). Not part of the write set; not retried, since
// an auth probe that fails once should surface immediately rather than
// burn the retry budget on what's almost always a terminal credential
// problem.
func (a *AuthClient) TestAuth(ctx context.Context, cred string) (*AuthResult, error) {
	resp, err := a.c.request(ctx).
		SetHeader("Authorization", "Bearer "+cred).
		Post("/auth.test")
	if cerr := classify(resp, err); cerr != nil {
		return nil, cerr
	}

	var body struct {
		envelope
		AuthResult
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, apperr.ServerError("malformed auth.test response")
	}
	return &body.AuthResult, nil
}

// openStreamURL obtains the ephemeral wss:// streaming URL
// (spec.md §4.B "open_stream_url", §6 "apps.connections.open").
// Exposed via StreamClient (stream.go); kept here as the shared resty
// call shape auth and streaming both need (Authorization via app-level
// credential).
func (c *Client) openStreamURL(ctx context.Context, appCred string) (string, error) {
	resp, err := c.request(ctx).
		SetHeader("Authorization", "Bearer "+appCred).
		Post("/apps.connections.open")
	if cerr := classify(resp, err); cerr != nil {
		return "", cerr
	}

	var body struct {
		envelope
		URL string `json:"url"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", apperr.ServerError("malformed apps.connections.open response")
	}
	return body.URL, nil
}
