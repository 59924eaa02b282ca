// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package eventstream

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeOpener returns a fixed URL, or an error once per call sequence
// dictated by failFirstN.
type fakeOpener struct {
	calls     int32
	failFirstN int32
}

func (f *fakeOpener) OpenURL(_ context.Context, _ string) (string, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failFirstN {
		return "", assert.AnError
	}
	return "wss://fake/stream", nil
}

// fakeConn feeds a scripted sequence of frames, then reports closed.
type fakeConn struct {
	mu      sync.Mutex
	frames  [][]byte
	acks    [][]byte
	closed  bool
	afterLast func() error // error returned once frames are exhausted
}

func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		if c.afterLast != nil {
			return 0, nil, c.afterLast()
		}
		return 0, nil, io.EOF
	}
	f := c.frames[0]
	c.frames = c.frames[1:]
	return 1, f, nil
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	b, _ := json.Marshal(v)
	c.mu.Lock()
	c.acks = append(c.acks, b)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeDialer struct {
	conns []Conn
	idx   int
	mu    sync.Mutex
}

func (d *fakeDialer) Dial(string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.idx >= len(d.conns) {
		return nil, assert.AnError
	}
	c := d.conns[d.idx]
	d.idx++
	return c, nil
}

func TestStream_EmitsClassifiedEvents(t *testing.T) {
	// spec.md §8 S4's literal frame shape.
	frame, err := json.Marshal(map[string]interface{}{
		"envelope_id": "E1",
		"payload": map[string]interface{}{
			"type":    "message",
			"channel": "C1",
			"ts":      "1.0",
			"user":    "U",
			"text":    "hi",
		},
	})
	require.NoError(t, err)

	conn := &fakeConn{frames: [][]byte{frame}}
	dialer := &fakeDialer{conns: []Conn{conn}}
	opener := &fakeOpener{}

	s := New(opener, "app-cred", discardLogger())
	s.dialer = dialer

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	go s.Run(ctx)

	select {
	case ev := <-s.Events:
		msgEv, ok := ev.(MessageEvent)
		require.True(t, ok)
		assert.Equal(t, "C1", msgEv.ChannelID)
		assert.Equal(t, "hi", msgEv.Message.Text)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestStream_AcknowledgesEnvelope(t *testing.T) {
	frame, err := json.Marshal(map[string]interface{}{
		"envelope_id": "env-1",
		"payload":     map[string]interface{}{"type": "user_typing", "channel": "C1", "user": "U1"},
	})
	require.NoError(t, err)

	conn := &fakeConn{frames: [][]byte{frame}}
	dialer := &fakeDialer{conns: []Conn{conn}}
	s := New(&fakeOpener{}, "app-cred", discardLogger())
	s.dialer = dialer

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go s.Run(ctx)

	<-s.Events

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		conn.mu.Lock()
		n := len(conn.acks)
		conn.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.acks, 1)
	assert.JSONEq(t, `{"envelope_id":"env-1"}`, string(conn.acks[0]))
}

func TestStream_UnknownTypeBecomesUnhandled(t *testing.T) {
	frame := []byte(`{"payload":{"type":"some_future_event"}}`)
	conn := &fakeConn{frames: [][]byte{frame}}
	dialer := &fakeDialer{conns: []Conn{conn}}
	s := New(&fakeOpener{}, "app-cred", discardLogger())
	s.dialer = dialer

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go s.Run(ctx)

	select {
	case ev := <-s.Events:
		_, ok := ev.(UnhandledEvent)
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestNextBackoff_DoublesAndCaps(t *testing.T) {
	d := backoffBase
	for i := 0; i < 10; i++ {
		d = nextBackoff(d)
	}
	assert.Equal(t, backoffCap, d)
}

func TestJittered_StaysWithinTwentyPercent(t *testing.T) {
	base := 10 * time.Second
	for i := 0; i < 50; i++ {
		j := jittered(base)
		assert.GreaterOrEqual(t, j, 8*time.Second)
		assert.LessOrEqual(t, j, 12*time.Second)
	}
}

func TestStream_ReconnectsAfterIdleClose(t *testing.T) {
	frame1 := []byte(`{"payload":{"type":"channel_joined","channel":"C1"}}`)
	frame2 := []byte(`{"payload":{"type":"channel_joined","channel":"C2"}}`)

	conn1 := &fakeConn{frames: [][]byte{frame1}}
	conn2 := &fakeConn{frames: [][]byte{frame2}}
	dialer := &fakeDialer{conns: []Conn{conn1, conn2}}
	s := New(&fakeOpener{}, "app-cred", discardLogger())
	s.dialer = dialer

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go s.Run(ctx)

	recv := func() Event {
		select {
		case ev := <-s.Events:
			return ev
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
			return nil
		}
	}

	first := recv()
	second := recv()

	assert.Equal(t, ChannelJoinedEvent{ChannelID: "C1"}, first)
	assert.Equal(t, ChannelJoinedEvent{ChannelID: "C2"}, second)
	assert.True(t, conn1.closed)
}
