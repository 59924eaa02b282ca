// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package eventstream

import (
	"encoding/json"

	"github.com/haldor/chatterm/internal/model"
)

// wireEnvelope is the JSON shape of every inbound frame (spec.md §4.C, §8
// S4): an optional envelope_id requiring acknowledgement, and a payload
// that itself carries the type discriminator inline alongside its fields
// (e.g. `{"envelope_id":"E1","payload":{"type":"message","channel":"C1",
// "ts":"1.0","user":"U","text":"hi"}}`) — there is no top-level type.
type wireEnvelope struct {
	EnvelopeID string      `json:"envelope_id,omitempty"`
	Payload    wirePayload `json:"payload"`
}

// ackFrame is written back verbatim once envelope_id is present.
type ackFrame struct {
	EnvelopeID string `json:"envelope_id"`
}

// wirePayload is the union of every field any event type's payload may
// carry; unused fields are simply left zero for a given type.
type wirePayload struct {
	Type     string `json:"type"`
	Channel  string `json:"channel"`
	TS       string `json:"ts"`
	User     string `json:"user"`
	Text     string `json:"text"`
	ThreadTS string `json:"thread_ts,omitempty"`
	Reaction string `json:"reaction"`
}

// classify turns a raw frame into the typed Event it represents. Unknown
// or malformed payloads become UnhandledEvent rather than an error: a
// socket that can't parse one frame should keep reading the next one.
func classify(raw []byte) Event {
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return UnhandledEvent{Raw: raw}
	}
	p := env.Payload

	switch p.Type {
	case "message":
		return MessageEvent{ChannelID: p.Channel, Message: model.Message{
			ChannelID: p.Channel,
			TS:        p.TS,
			AuthorID:  p.User,
			Text:      p.Text,
			ThreadTS:  p.ThreadTS,
		}}

	case "message_updated":
		return MessageUpdatedEvent{ChannelID: p.Channel, Message: model.Message{
			ChannelID: p.Channel,
			TS:        p.TS,
			AuthorID:  p.User,
			Text:      p.Text,
			ThreadTS:  p.ThreadTS,
			Edited:    true,
		}}

	case "message_deleted":
		return MessageDeletedEvent{ChannelID: p.Channel, TS: p.TS}

	case "reaction_added":
		return ReactionAddedEvent{
			ChannelID: p.Channel,
			TS:        p.TS,
			Reaction:  model.Reaction{Name: p.Reaction, Users: []string{p.User}, Count: 1},
		}

	case "reaction_removed":
		return ReactionRemovedEvent{ChannelID: p.Channel, TS: p.TS, Name: p.Reaction}

	case "user_typing":
		return UserTypingEvent{ChannelID: p.Channel, UserID: p.User}

	case "channel_joined":
		return ChannelJoinedEvent{ChannelID: p.Channel}

	default:
		return UnhandledEvent{Raw: raw}
	}
}
