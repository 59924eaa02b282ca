// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"log/slog"

	"github.com/haldor/chatterm/internal/eventstream"
	"github.com/haldor/chatterm/internal/model"
	"github.com/haldor/chatterm/pkg/restclient"
)

// workspace pairs one model.Workspace with the shared RestClient and
// EventStream it owns (spec.md §3 "Data flow": one EventStream producer
// and one shared RestClient per workspace).
type workspace struct {
	ws     model.Workspace
	rest   *restclient.Client
	stream *eventstream.Stream
	cancel context.CancelFunc
}

// newWorkspace wires a RestClient and EventStream for ws and starts the
// stream's reconnect loop in the background, forwarding tagged events into
// out. baseURL is the chat service's REST base (config chat_service
// section supplies it indirectly via Coordinator).
func newWorkspace(ws model.Workspace, baseURL string, log *slog.Logger, out chan<- taggedEvent) *workspace {
	rest := restclient.New(baseURL)
	stream := eventstream.New(rest.Stream, ws.AppCred, log)

	ctx, cancel := context.WithCancel(context.Background())
	w := &workspace{ws: ws, rest: rest, stream: stream, cancel: cancel}

	go stream.Run(ctx)
	go forwardEvents(ctx, ws.TeamID, stream.Events, out)

	return w
}

// taggedEvent carries an EventStream event alongside the workspace it came
// from, since Coordinator fans in every active workspace's stream into one
// channel (spec.md §4.E "Drains the EventStream mailbox (one per active
// workspace)").
type taggedEvent struct {
	TeamID string
	Event  eventstream.Event
}

func forwardEvents(ctx context.Context, teamID string, in <-chan eventstream.Event, out chan<- taggedEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- taggedEvent{TeamID: teamID, Event: ev}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// close stops the workspace's background stream goroutines. The REST
// client's HTTP connection pool needs no explicit shutdown.
func (w *workspace) close() {
	w.cancel()
}
