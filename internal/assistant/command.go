// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package assistant

import (
	"strings"

	"github.com/haldor/chatterm/internal/model"
)

// verbAliases maps every recognised slash-command spelling, including the
// localised variants spec.md §4.D calls for, to its AgentCommandKind.
var verbAliases = map[string]model.AgentCommandKind{
	"summarize": model.AgentSummarize,
	"summarise": model.AgentSummarize,
	"resumir":   model.AgentSummarize,

	"draft":    model.AgentDraft,
	"redigir":  model.AgentDraft,
	"entwurf":  model.AgentDraft,

	"search":   model.AgentSearch,
	"buscar":   model.AgentSearch,
	"suchen":   model.AgentSearch,
}

const mentionToken = "@assistant"

// ParseCommand recognises a leading "/<verb>" slash command or an
// "@assistant" mention anywhere in text (spec.md §4.D "Command parsing").
// Returns ok=false when text addresses neither.
func ParseCommand(text, channelID, threadTS string) (model.AgentCommand, bool) {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "/") {
		verb := strings.ToLower(strings.Fields(trimmed[1:])[0])
		kind, known := verbAliases[verb]
		if !known {
			kind = model.AgentUnknown
		}
		return model.AgentCommand{
			Kind:      kind,
			Raw:       trimmed,
			ChannelID: channelID,
			ThreadTS:  threadTS,
		}, true
	}

	if strings.Contains(strings.ToLower(trimmed), mentionToken) {
		return model.AgentCommand{
			Kind:      model.AgentUnknown,
			Raw:       trimmed,
			ChannelID: channelID,
			ThreadTS:  threadTS,
		}, true
	}

	return model.AgentCommand{}, false
}

// WebhookPayload is the wire shape spec.md §4.D specifies for /webhook.
type WebhookPayload struct {
	Command  string `json:"command"`
	Channel  string `json:"channel"`
	User     string `json:"user"`
	Message  string `json:"message"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

// ToPayload builds the webhook request body for a parsed command.
func ToPayload(cmd model.AgentCommand, userID string) WebhookPayload {
	return WebhookPayload{
		Command:  string(cmd.Kind),
		Channel:  cmd.ChannelID,
		User:     userID,
		Message:  cmd.Raw,
		ThreadTS: cmd.ThreadTS,
	}
}
