// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haldor/chatterm/internal/apperr"
	"github.com/haldor/chatterm/internal/eventstream"
	"github.com/haldor/chatterm/internal/logging"
	"github.com/haldor/chatterm/internal/model"
)

func TestCoordinator_InsertMessageIdempotentUnread(t *testing.T) {
	c := &Coordinator{
		messages: make(map[string]*MessageDeque),
		channels: make(map[string]model.Channel),
	}

	c.insertMessage(model.Message{ChannelID: "C1", TS: "1.0", Text: "hi"})
	c.insertMessage(model.Message{ChannelID: "C1", TS: "1.0", Text: "hi"})

	assert.Equal(t, 1, c.channels["C1"].Unread, "inserting the same (channel, ts) twice must not double-count unread")
}

func TestCoordinator_FocusedChannelDoesNotAccumulateUnread(t *testing.T) {
	c := &Coordinator{
		messages: make(map[string]*MessageDeque),
		channels: make(map[string]model.Channel),
		focused:  "C1",
	}

	c.insertMessage(model.Message{ChannelID: "C1", TS: "1.0", Text: "hi"})
	assert.Equal(t, 0, c.channels["C1"].Unread)
}

func TestCoordinator_HandleStreamEvent_MessageInsertsAndCountsUnread(t *testing.T) {
	c := &Coordinator{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		messages: make(map[string]*MessageDeque),
		channels: make(map[string]model.Channel),
	}

	c.handleStreamEvent(taggedEvent{TeamID: "T1", Event: eventstream.MessageEvent{
		ChannelID: "C1",
		Message:   model.Message{ChannelID: "C1", TS: "1.0", Text: "hi"},
	}})

	require.Len(t, c.Messages("C1"), 1)
	assert.Equal(t, 1, c.channels["C1"].Unread)
}

func TestCoordinator_HandleStreamEvent_ReactionAddedThenRemoved(t *testing.T) {
	c := &Coordinator{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		messages: make(map[string]*MessageDeque),
		channels: make(map[string]model.Channel),
	}
	c.deque("C1").Insert(model.Message{ChannelID: "C1", TS: "1.0"})

	c.handleStreamEvent(taggedEvent{Event: eventstream.ReactionAddedEvent{
		ChannelID: "C1", TS: "1.0", Reaction: model.Reaction{Name: "thumbsup", Count: 1},
	}})
	m, _ := c.deque("C1").Get("1.0")
	require.Len(t, m.Reactions, 1)

	c.handleStreamEvent(taggedEvent{Event: eventstream.ReactionRemovedEvent{
		ChannelID: "C1", TS: "1.0", Name: "thumbsup",
	}})
	m, _ = c.deque("C1").Get("1.0")
	assert.Len(t, m.Reactions, 0)
}

func TestCoordinator_LoadingIndicator_SymmetricClearOnSuccess(t *testing.T) {
	c := &Coordinator{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		messages: make(map[string]*MessageDeque),
		channels: make(map[string]model.Channel),
	}

	c.startLoading("summarize")
	_, loading := c.LoadingState()
	require.True(t, loading)

	c.handleTaskResult(AssistantReplied{Body: "done"})
	_, loading = c.LoadingState()
	assert.False(t, loading, "a completion event must clear the loading indicator")
}

func TestCoordinator_LoadingIndicator_SymmetricClearOnFailure(t *testing.T) {
	c := &Coordinator{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		messages: make(map[string]*MessageDeque),
		channels: make(map[string]model.Channel),
	}

	c.startLoading("draft")
	c.handleTaskResult(TaskFailed{Label: "assistant: draft", Err: apperr.Timeout("webhook timed out", errors.New("deadline exceeded"))})

	_, loading := c.LoadingState()
	assert.False(t, loading, "a failure completion must clear the loading indicator too")

	msg, ok := c.LastError()
	require.True(t, ok)
	assert.Contains(t, msg, "Press R to retry")
}

func TestCoordinator_NonAssistantFailureDoesNotClearUnrelatedLoading(t *testing.T) {
	c := &Coordinator{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		messages: make(map[string]*MessageDeque),
		channels: make(map[string]model.Channel),
	}

	c.startLoading("summarize")
	c.handleTaskResult(TaskFailed{Label: "send message", Err: apperr.Network("boom", errors.New("conn reset"))})

	_, loading := c.LoadingState()
	assert.True(t, loading, "a failure from an unrelated task must not clear the assistant loading indicator")
}

func TestCoordinator_ActionableErrorRedactsBearer(t *testing.T) {
	// cmd/chatterm installs the redactor at startup; do the same here.
	apperr.SetRedactor(logging.Redact)

	c := &Coordinator{
		messages: make(map[string]*MessageDeque),
		channels: make(map[string]model.Channel),
	}

	c.actionableError(apperr.Auth("token rejected", errors.New("Bearer xoxp-aaaa123 invalid")))
	msg, ok := c.LastError()
	require.True(t, ok)
	assert.NotContains(t, msg, "xoxp-aaaa123")
}
