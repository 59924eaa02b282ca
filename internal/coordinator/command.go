// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package coordinator

import "github.com/haldor/chatterm/internal/model"

// Command is a UI-issued instruction delivered to Coordinator's mailbox
// (spec.md §4.E "Drains the UI input channel"). Like eventstream.Event,
// it's a closed sum type: every concrete command carries exactly the
// fields its handler needs and nothing the UI layer shouldn't reach into.
type Command interface{ isCommand() }

// SendMessage posts text to a channel, optionally inside a thread.
type SendMessage struct {
	TeamID    string
	ChannelID string
	Text      string
	ThreadTS  string
}

// EditMessage updates an existing message's text.
type EditMessage struct {
	TeamID    string
	ChannelID string
	TS        string
	Text      string
}

// DeleteMessage removes a message.
type DeleteMessage struct {
	TeamID    string
	ChannelID string
	TS        string
}

// React adds or removes an emoji reaction.
type React struct {
	TeamID    string
	ChannelID string
	TS        string
	Emoji     string
	Remove    bool
}

// LoadHistory fetches recent history for a channel.
type LoadHistory struct {
	TeamID    string
	ChannelID string
	Limit     int
}

// FocusChannel marks a channel as the one currently on screen; its unread
// counter resets and future inbound messages won't increment it.
type FocusChannel struct {
	ChannelID string
	ReadTS    string
}

// DispatchAssistant sends a parsed assistant command to the webhook.
type DispatchAssistant struct {
	Command model.AgentCommand
	UserID  string
}

// SwitchWorkspace makes teamID the active workspace.
type SwitchWorkspace struct {
	TeamID string
}

// AddWorkspace onboards a newly authenticated workspace — the completion
// of the OAuth flow in internal/oauthflow — and persists it to the vault.
type AddWorkspace struct {
	Workspace model.Workspace
}

// RemoveWorkspace signs a workspace out and forgets its credentials.
type RemoveWorkspace struct {
	TeamID string
}

// DismissError clears the held error modal.
type DismissError struct{}

// Quit requests a clean shutdown.
type Quit struct{}

func (SendMessage) isCommand()       {}
func (EditMessage) isCommand()       {}
func (DeleteMessage) isCommand()     {}
func (React) isCommand()             {}
func (LoadHistory) isCommand()       {}
func (FocusChannel) isCommand()      {}
func (DispatchAssistant) isCommand() {}
func (SwitchWorkspace) isCommand()   {}
func (AddWorkspace) isCommand()      {}
func (RemoveWorkspace) isCommand()   {}
func (DismissError) isCommand()      {}
func (Quit) isCommand()              {}

// TaskResult is how a spawned background task reports back to the mailbox
// (spec.md §4.E "posts a single completion event carrying result or
// classified error"). Like Command, it's a closed sum type.
type TaskResult interface{ isTaskResult() }

// MessageSent confirms a SendMessage task completed.
type MessageSent struct {
	ChannelID string
	TS        string
}

// MessageEdited confirms an EditMessage task completed.
type MessageEdited struct {
	ChannelID string
	Message   model.Message
}

// MessageRemoved confirms a DeleteMessage task completed.
type MessageRemoved struct {
	ChannelID string
	TS        string
}

// ReactionApplied confirms a React task completed.
type ReactionApplied struct {
	ChannelID string
	TS        string
}

// HistoryLoaded delivers a LoadHistory task's result.
type HistoryLoaded struct {
	ChannelID string
	Messages  []model.Message
}

// AssistantReplied delivers a DispatchAssistant task's result.
type AssistantReplied struct {
	Body      string
	Truncated bool
}

// TaskFailed reports a background task's terminal error, tagged with the
// command label the loading indicator was tracking for it.
type TaskFailed struct {
	Label string
	Err   error
}

func (MessageSent) isTaskResult()      {}
func (MessageEdited) isTaskResult()    {}
func (MessageRemoved) isTaskResult()   {}
func (ReactionApplied) isTaskResult()  {}
func (HistoryLoaded) isTaskResult()    {}
func (AssistantReplied) isTaskResult() {}
func (TaskFailed) isTaskResult()       {}
