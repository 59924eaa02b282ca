// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package restclient

import "context"

// StreamClient exposes the ephemeral WebSocket URL handshake
// (spec.md §4.B "open_stream_url").
type StreamClient struct{ c *Client }

// OpenURL obtains a fresh, single-use wss:// URL for the app-level
// credential. EventStream calls this on start and on every reconnect,
// since the URL is single-use (spec.md §4.C).
func (sc *StreamClient) OpenURL(ctx context.Context, appCred string) (string, error) {
	return sc.c.openStreamURL(ctx, appCred)
}
