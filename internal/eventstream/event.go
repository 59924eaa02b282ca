// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package eventstream maintains a live WebSocket connection to the chat
// service's ephemeral streaming URL (spec.md §4.C). It is the client-side
// counterpart to wingedpig-trellis/internal/api/handlers/events.go's
// server-side WebSocket handler: the idle-timeout shape is the same, just
// dialed instead of upgraded. No ping/pong frames are sent.
package eventstream

import "github.com/haldor/chatterm/internal/model"

// Event is one classified inbound frame. Coordinator type-switches on the
// concrete type to route it into per-channel state.
type Event interface{ isEvent() }

// MessageEvent is a newly posted message.
type MessageEvent struct {
	ChannelID string
	Message   model.Message
}

// MessageUpdatedEvent is an edit to an existing message.
type MessageUpdatedEvent struct {
	ChannelID string
	Message   model.Message
}

// MessageDeletedEvent marks a message tombstoned.
type MessageDeletedEvent struct {
	ChannelID string
	TS        string
}

// ReactionAddedEvent is a reaction attached to a message.
type ReactionAddedEvent struct {
	ChannelID string
	TS        string
	Reaction  model.Reaction
}

// ReactionRemovedEvent is a reaction detached from a message.
type ReactionRemovedEvent struct {
	ChannelID string
	TS        string
	Name      string
}

// UserTypingEvent is a typing indicator from a user in a channel.
type UserTypingEvent struct {
	ChannelID string
	UserID    string
}

// ChannelJoinedEvent announces membership in a new channel.
type ChannelJoinedEvent struct {
	ChannelID string
}

// UnhandledEvent carries a frame whose type the client does not recognise.
// Coordinator is free to ignore it; it exists so an unrecognised event type
// never has to be silently dropped before it reaches application code.
type UnhandledEvent struct {
	Raw []byte
}

func (MessageEvent) isEvent()        {}
func (MessageUpdatedEvent) isEvent() {}
func (MessageDeletedEvent) isEvent() {}
func (ReactionAddedEvent) isEvent()  {}
func (ReactionRemovedEvent) isEvent() {}
func (UserTypingEvent) isEvent()     {}
func (ChannelJoinedEvent) isEvent()  {}
func (UnhandledEvent) isEvent()      {}
