// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"strings"
	"time"

	"github.com/haldor/chatterm/internal/apperr"
	"github.com/haldor/chatterm/internal/assistant"
	"github.com/haldor/chatterm/internal/eventstream"
	"github.com/haldor/chatterm/internal/model"
)

func assistantUnavailableErr() error {
	return apperr.Validation("the local assistant is not configured")
}

func (c *Coordinator) handleCommand(cmd Command) {
	switch cmd := cmd.(type) {

	case SendMessage:
		ws, ok := c.workspaces[cmd.TeamID]
		if !ok {
			return
		}
		c.dispatch("send message", func(ctx context.Context) (TaskResult, error) {
			var (
				ts  string
				err error
			)
			if cmd.ThreadTS != "" {
				ts, err = ws.rest.Messages.SendToThread(ctx, ws.ws.UserCred, cmd.ChannelID, cmd.ThreadTS, cmd.Text)
			} else {
				ts, err = ws.rest.Messages.Send(ctx, ws.ws.UserCred, cmd.ChannelID, cmd.Text)
			}
			if err != nil {
				return nil, err
			}
			return MessageSent{ChannelID: cmd.ChannelID, TS: ts}, nil
		})

	case EditMessage:
		ws, ok := c.workspaces[cmd.TeamID]
		if !ok {
			return
		}
		c.dispatch("edit message", func(ctx context.Context) (TaskResult, error) {
			msg, err := ws.rest.Messages.Update(ctx, ws.ws.UserCred, cmd.ChannelID, cmd.TS, cmd.Text)
			if err != nil {
				return nil, err
			}
			return MessageEdited{ChannelID: cmd.ChannelID, Message: *msg}, nil
		})

	case DeleteMessage:
		ws, ok := c.workspaces[cmd.TeamID]
		if !ok {
			return
		}
		c.dispatch("delete message", func(ctx context.Context) (TaskResult, error) {
			if err := ws.rest.Messages.Delete(ctx, ws.ws.UserCred, cmd.ChannelID, cmd.TS); err != nil {
				return nil, err
			}
			return MessageRemoved{ChannelID: cmd.ChannelID, TS: cmd.TS}, nil
		})

	case React:
		ws, ok := c.workspaces[cmd.TeamID]
		if !ok {
			return
		}
		c.dispatch("react", func(ctx context.Context) (TaskResult, error) {
			var err error
			if cmd.Remove {
				err = ws.rest.Messages.RemoveReaction(ctx, ws.ws.UserCred, cmd.ChannelID, cmd.TS, cmd.Emoji)
			} else {
				err = ws.rest.Messages.AddReaction(ctx, ws.ws.UserCred, cmd.ChannelID, cmd.TS, cmd.Emoji)
			}
			if err != nil {
				return nil, err
			}
			return ReactionApplied{ChannelID: cmd.ChannelID, TS: cmd.TS}, nil
		})

	case LoadHistory:
		ws, ok := c.workspaces[cmd.TeamID]
		if !ok {
			return
		}
		c.dispatch("load history", func(ctx context.Context) (TaskResult, error) {
			msgs, err := ws.rest.Channels.History(ctx, ws.ws.UserCred, cmd.ChannelID, cmd.Limit)
			if err != nil {
				return nil, err
			}
			return HistoryLoaded{ChannelID: cmd.ChannelID, Messages: msgs}, nil
		})

	case FocusChannel:
		c.focused = cmd.ChannelID
		if ch, ok := c.channels[cmd.ChannelID]; ok {
			ch.MarkRead(cmd.ReadTS)
			c.channels[cmd.ChannelID] = ch
		}

	case DispatchAssistant:
		if c.assistant == nil {
			c.actionableError(assistantUnavailableErr())
			return
		}
		c.startLoading(string(cmd.Command.Kind))
		payload := assistant.ToPayload(cmd.Command, cmd.UserID)
		c.dispatch("assistant: "+string(cmd.Command.Kind), func(ctx context.Context) (TaskResult, error) {
			resp, err := c.assistant.Send(ctx, payload)
			if err != nil {
				return nil, err
			}
			return AssistantReplied{Body: resp.Body, Truncated: resp.Truncated}, nil
		})

	case SwitchWorkspace:
		c.session.SetActive(cmd.TeamID)

	case AddWorkspace:
		if old, ok := c.workspaces[cmd.Workspace.TeamID]; ok {
			old.close()
		}
		c.session.AddWorkspace(cmd.Workspace)
		c.workspaces[cmd.Workspace.TeamID] = newWorkspace(cmd.Workspace, c.cfg.ChatService.BaseURL, c.log, c.stream)
		if err := c.vault.Save(c.session); err != nil {
			c.actionableError(err)
		}

	case RemoveWorkspace:
		if ws, ok := c.workspaces[cmd.TeamID]; ok {
			ws.close()
			delete(c.workspaces, cmd.TeamID)
		}
		c.session.RemoveWorkspace(cmd.TeamID)
		if err := c.vault.Save(c.session); err != nil {
			c.actionableError(err)
		}

	case DismissError:
		c.lastError = ""

	case Quit:
		// Run's ctx.Done() path performs the actual shutdown; a bare Quit
		// command has nothing left to do but let the caller cancel ctx.
	}
}

func (c *Coordinator) handleStreamEvent(tagged taggedEvent) {
	switch ev := tagged.Event.(type) {

	case eventstream.MessageEvent:
		c.insertMessage(ev.Message)

	case eventstream.MessageUpdatedEvent:
		c.insertMessage(ev.Message)

	case eventstream.MessageDeletedEvent:
		if d, ok := c.messages[ev.ChannelID]; ok {
			if m, found := d.Get(ev.TS); found {
				m.Deleted = true
				d.Insert(m)
			}
		}

	case eventstream.ReactionAddedEvent:
		d, ok := c.messages[ev.ChannelID]
		if !ok {
			return
		}
		m, found := d.Get(ev.TS)
		if !found {
			return
		}
		m.Reactions = upsertReaction(m.Reactions, ev.Reaction)
		d.Insert(m)

	case eventstream.ReactionRemovedEvent:
		d, ok := c.messages[ev.ChannelID]
		if !ok {
			return
		}
		m, found := d.Get(ev.TS)
		if !found {
			return
		}
		m.Reactions = removeReaction(m.Reactions, ev.Name)
		d.Insert(m)

	case eventstream.UserTypingEvent:
		users, ok := c.typing[ev.ChannelID]
		if !ok {
			users = make(map[string]time.Time)
			c.typing[ev.ChannelID] = users
		}
		users[ev.UserID] = time.Now()

	case eventstream.ChannelJoinedEvent:
		if _, ok := c.channels[ev.ChannelID]; !ok {
			c.channels[ev.ChannelID] = model.Channel{ID: ev.ChannelID}
		}

	case eventstream.UnhandledEvent:
		c.log.Debug("coordinator: unhandled event frame", "team", tagged.TeamID, "bytes", len(ev.Raw))
	}
}

func (c *Coordinator) handleTaskResult(res TaskResult) {
	switch res := res.(type) {

	case MessageSent:
		// The REST send already returned the server ts; the EventStream's
		// own MessageEvent for the same ts will arrive and win the dedup
		// insert in MessageDeque, so there's nothing to apply here; no
		// loading indicator tracks a send.

	case MessageEdited:
		c.insertMessage(res.Message)

	case MessageRemoved:
		if d, ok := c.messages[res.ChannelID]; ok {
			if m, found := d.Get(res.TS); found {
				m.Deleted = true
				d.Insert(m)
			}
		}

	case ReactionApplied:
		// Reaction state is authoritative from the EventStream's
		// ReactionAdded/Removed events, not the REST call's bare ok=true.

	case HistoryLoaded:
		for _, m := range res.Messages {
			c.deque(res.ChannelID).Insert(m)
		}

	case AssistantReplied:
		c.clearLoading()
		c.pushAssistantLog(res.Body)

	case TaskFailed:
		if strings.HasPrefix(res.Label, "assistant: ") {
			c.clearLoading()
		}
		c.actionableError(res.Err)
	}
}

func upsertReaction(reactions []model.Reaction, r model.Reaction) []model.Reaction {
	for i, existing := range reactions {
		if existing.Name == r.Name {
			reactions[i] = r
			return reactions
		}
	}
	return append(reactions, r)
}

func removeReaction(reactions []model.Reaction, name string) []model.Reaction {
	out := reactions[:0]
	for _, r := range reactions {
		if r.Name != name {
			out = append(out, r)
		}
	}
	return out
}
