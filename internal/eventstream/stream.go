// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package eventstream

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haldor/chatterm/internal/logging"
)

const (
	idleTimeout    = 60 * time.Second
	backoffBase    = 1 * time.Second
	backoffCap     = 30 * time.Second
	dialTimeout    = 10 * time.Second
)

// URLOpener obtains a fresh, single-use streaming URL. Implemented by
// *restclient.Client (via its Stream sub-client); declared here as a
// narrow interface so tests substitute a fake, following the
// fake-over-interface style of wingedpig-trellis/internal/service/manager_test.go.
type URLOpener interface {
	OpenURL(ctx context.Context, appCred string) (string, error)
}

// Dialer abstracts the WebSocket handshake for testability.
type Dialer interface {
	Dial(url string) (Conn, error)
}

// Conn is the subset of *websocket.Conn the stream loop needs.
type Conn interface {
	SetReadDeadline(t time.Time) error
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	Close() error
}

// gorillaDialer is the production Dialer, backed by gorilla/websocket.
type gorillaDialer struct{ d *websocket.Dialer }

func newGorillaDialer() gorillaDialer {
	return gorillaDialer{d: &websocket.Dialer{HandshakeTimeout: dialTimeout}}
}

func (g gorillaDialer) Dial(url string) (Conn, error) {
	conn, _, err := g.d.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Stream owns one reconnecting WebSocket to the chat service's streaming
// endpoint for a single workspace (spec.md §4.C). There is no back
// reference to Coordinator: output flows solely through Events.
type Stream struct {
	opener  URLOpener
	appCred string
	dialer  Dialer
	log     *slog.Logger

	// Events is the outbound mailbox. Buffered generously (1024 events)
	// rather than truly unbounded: Coordinator drains it on every
	// receive-loop tick (spec.md §4.E), so in steady state it never
	// approaches the buffer. When it is full, the receive loop blocks.
	Events chan Event
}

// New constructs a Stream for one workspace's app-level credential.
func New(opener URLOpener, appCred string, log *slog.Logger) *Stream {
	return &Stream{
		opener:  opener,
		appCred: appCred,
		dialer:  newGorillaDialer(),
		log:     log,
		Events:  make(chan Event, 1024),
	}
}

// Run drives the connect/receive/reconnect loop until ctx is cancelled.
// Intended to be run in its own goroutine; Stream has no other entrypoint
// that would block.
func (s *Stream) Run(ctx context.Context) {
	backoff := backoffBase
	for ctx.Err() == nil {
		conn, err := s.connect(ctx)
		if err != nil {
			s.log.Warn("eventstream: connect failed", "error", logging.Redact(err.Error()))
			if !sleepCtx(ctx, jittered(backoff)) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		// A successful connect resets the accumulator; the receive loop
		// also resets it on every frame so a long-lived connection that
		// later drops reconnects fast again.
		backoff = backoffBase
		s.receiveLoop(ctx, conn, &backoff)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		if !sleepCtx(ctx, jittered(backoff)) {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

func (s *Stream) connect(ctx context.Context) (Conn, error) {
	url, err := s.opener.OpenURL(ctx, s.appCred)
	if err != nil {
		return nil, err
	}
	s.log.Debug("eventstream: dialing", "url", logging.Redact(url))
	return s.dialer.Dial(url)
}

// receiveLoop reads frames until the socket errors or sits idle past
// idleTimeout, at which point it returns so Run dials a fresh URL — a
// single-use URL cannot be reused for reconnect (spec.md §4.C).
func (s *Stream) receiveLoop(ctx context.Context, conn Conn, backoff *time.Duration) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := conn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
			return
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		*backoff = backoffBase

		var env wireEnvelope
		if json.Unmarshal(raw, &env) == nil && env.EnvelopeID != "" {
			if werr := conn.WriteJSON(ackFrame{EnvelopeID: env.EnvelopeID}); werr != nil {
				return
			}
		}

		event := classify(raw)
		select {
		case s.Events <- event:
		case <-ctx.Done():
			return
		}
	}
}

// jittered applies ±20% jitter to d (spec.md §4.C).
func jittered(d time.Duration) time.Duration {
	spread := float64(d) * 0.2
	delta := (rand.Float64()*2 - 1) * spread
	return d + time.Duration(delta)
}

func nextBackoff(d time.Duration) time.Duration {
	next := d * 2
	if next > backoffCap {
		next = backoffCap
	}
	return next
}

// sleepCtx sleeps for d, returning false if ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
