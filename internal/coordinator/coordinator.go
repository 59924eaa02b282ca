// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package coordinator owns chatterm's in-memory state and runs the single
// receive loop that drains the UI input channel, the fanned-in EventStream
// mailbox, and background-task completions (spec.md §4.E). It is grounded
// on wingedpig-trellis/internal/app.App's "single struct owns every
// manager" shape, generalized into a mailbox per spec.md §9's design note:
// commands arrive as messages rather than direct method calls, so a
// background task's completion can never re-enter and mutate state while
// another handler is mid-flight.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/haldor/chatterm/internal/apperr"
	"github.com/haldor/chatterm/internal/assistant"
	"github.com/haldor/chatterm/internal/config"
	"github.com/haldor/chatterm/internal/model"
	"github.com/haldor/chatterm/internal/vault"
)

const (
	messageDequeCap  = 500
	assistantLogCap  = 100
	renderInterval   = 100 * time.Millisecond
	mailboxBacklog   = 64
	streamBacklog    = 256
)

// Loading is the in-flight assistant-command indicator spec.md §4.E
// describes: recorded on dispatch, cleared only when the matching
// completion arrives, success or failure, so cleanup is always symmetric.
type Loading struct {
	Label   string
	Started time.Time
}

// Elapsed reports how long the indicator has been showing, for render.
func (l Loading) Elapsed() time.Duration { return time.Since(l.Started) }

// Coordinator owns all in-memory state except at-rest credentials (owned
// by Vault) and per-component connection pools (owned by each workspace's
// RestClient). It must only be mutated from within Run's receive loop.
type Coordinator struct {
	vault     *vault.Vault
	assistant *assistant.Orchestrator
	cfg       config.Config
	log       *slog.Logger

	session    *model.Session
	workspaces map[string]*workspace

	messages map[string]*MessageDeque // channel_id -> deque
	channels map[string]model.Channel
	typing   map[string]map[string]time.Time // channel_id -> user_id -> last seen

	assistantLog []string
	loading      *Loading
	lastError    string
	focused      string

	ui     chan Command
	tasks  chan TaskResult
	stream chan taggedEvent

	// Render is signalled after every mailbox drain and on each render
	// tick; a UI sink selects on it to know when to redraw (spec.md §4.E
	// "Emits a render tick"). Buffered 1 and coalesced: a consumer that
	// hasn't caught up to the previous signal doesn't queue a backlog of
	// redraws it would just collapse into one anyway.
	Render chan struct{}

	done chan struct{}
	eg   errgroup.Group
}

// LoadSession loads the persisted Session from v, treating a missing
// session file as a fresh, empty Session awaiting OAuth onboarding rather
// than a startup error (spec.md §6). Callers load the session this way
// before constructing the assistant orchestrator, so a persisted
// AssistantBearer is available to Orchestrator.Restore before New wires
// everything together.
func LoadSession(v *vault.Vault) (*model.Session, error) {
	session, err := v.Load()
	switch {
	case errors.Is(err, vault.ErrNotFound):
		return &model.Session{}, nil
	case err != nil:
		return nil, err
	default:
		if err := session.Validate(); err != nil {
			return nil, fmt.Errorf("persisted session failed validation: %w", err)
		}
		return session, nil
	}
}

// New wires one workspace (RestClient + EventStream) per entry in session
// (spec.md §3 "Data flow"). session is expected to come from LoadSession.
func New(cfg config.Config, v *vault.Vault, session *model.Session, asst *assistant.Orchestrator, log *slog.Logger) *Coordinator {
	c := &Coordinator{
		vault:        v,
		assistant:    asst,
		cfg:          cfg,
		log:          log,
		session:      session,
		workspaces:   make(map[string]*workspace, len(session.Workspaces)),
		messages:     make(map[string]*MessageDeque),
		channels:     make(map[string]model.Channel),
		typing:       make(map[string]map[string]time.Time),
		assistantLog: make([]string, 0, assistantLogCap),
		ui:           make(chan Command, mailboxBacklog),
		tasks:        make(chan TaskResult, mailboxBacklog),
		stream:       make(chan taggedEvent, streamBacklog),
		Render:       make(chan struct{}, 1),
		done:         make(chan struct{}),
	}

	for _, ws := range session.Workspaces {
		c.workspaces[ws.TeamID] = newWorkspace(ws, cfg.ChatService.BaseURL, log, c.stream)
	}

	return c
}

// Submit enqueues a UI-originated command. Never blocks the caller beyond
// the mailbox's backlog capacity — the UI render loop must never suspend
// on network IO, and command dispatch is the one place it could if this
// blocked indefinitely (spec.md §5).
func (c *Coordinator) Submit(cmd Command) {
	c.ui <- cmd
}

// Messages returns a snapshot of channelID's stored messages in display
// order.
func (c *Coordinator) Messages(channelID string) []model.Message {
	d, ok := c.messages[channelID]
	if !ok {
		return nil
	}
	return d.Items()
}

// LastError returns the most recent actionable error string for the modal,
// and whether one is currently held.
func (c *Coordinator) LastError() (string, bool) {
	return c.lastError, c.lastError != ""
}

// LoadingState reports the current assistant-command loading indicator, if
// any is in flight.
func (c *Coordinator) LoadingState() (Loading, bool) {
	if c.loading == nil {
		return Loading{}, false
	}
	return *c.loading, true
}

// Run drains the mailbox until ctx is cancelled. It is the only goroutine
// permitted to touch Coordinator's unexported state, per the single-owner
// design spec.md §9 calls for.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(renderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			// Wait only to let in-flight tasks unwind before Run returns;
			// their errors were already surfaced as TaskFailed completions
			// (or will be dropped via c.done), so they don't become Run's
			// own return value.
			_ = c.eg.Wait()
			return nil

		case cmd := <-c.ui:
			c.handleCommand(cmd)
			c.tick()

		case ev := <-c.stream:
			c.handleStreamEvent(ev)
			c.tick()

		case res := <-c.tasks:
			c.handleTaskResult(res)
			c.tick()

		case <-ticker.C:
			c.tick()
		}
	}
}

// tick signals a render pass is due without blocking if one is already
// pending; the UI layer selects on Render to know when to redraw.
func (c *Coordinator) tick() {
	select {
	case c.Render <- struct{}{}:
	default:
	}
}

func (c *Coordinator) shutdown() {
	close(c.done)
	for _, w := range c.workspaces {
		w.close()
	}
	if c.assistant != nil {
		c.assistant.Close()
	}
}

// dispatch spawns fn as an independent background task holding its own
// cloned handles; the UI never awaits it synchronously (spec.md §4.E "Task
// dispatch"). A panic inside fn is recovered and reported as a TaskFailed
// rather than crashing the process, since errgroup.Go alone only captures
// returned errors. Tasks run to completion even after shutdown begins
// (spec.md §5 "Cancellation"); send picks c.done over blocking forever once
// Run has stopped draining the mailbox.
func (c *Coordinator) dispatch(label string, fn func(context.Context) (TaskResult, error)) {
	c.eg.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in task %s: %v", label, r)
				c.send(TaskFailed{Label: label, Err: err})
			}
		}()

		result, taskErr := fn(context.Background())
		if taskErr != nil {
			c.send(TaskFailed{Label: label, Err: taskErr})
			return taskErr
		}
		c.send(result)
		return nil
	})
}

func (c *Coordinator) send(result TaskResult) {
	select {
	case c.tasks <- result:
	case <-c.done:
	}
}

// startLoading records the assistant-command loading indicator. Symmetric
// clearing happens in handleTaskResult regardless of success or failure.
func (c *Coordinator) startLoading(label string) {
	c.loading = &Loading{Label: label, Started: time.Now()}
}

func (c *Coordinator) clearLoading() {
	c.loading = nil
}

// actionableError converts any error into the redacted, hinted string
// spec.md §7 specifies, and holds it for modal display.
func (c *Coordinator) actionableError(err error) {
	c.lastError = apperr.ActionableError(err)
}

func (c *Coordinator) pushAssistantLog(entry string) {
	c.assistantLog = append(c.assistantLog, entry)
	if len(c.assistantLog) > assistantLogCap {
		c.assistantLog = c.assistantLog[len(c.assistantLog)-assistantLogCap:]
	}
}

// deque returns the MessageDeque for channelID, creating one if absent.
func (c *Coordinator) deque(channelID string) *MessageDeque {
	d, ok := c.messages[channelID]
	if !ok {
		d = NewMessageDeque(messageDequeCap)
		c.messages[channelID] = d
	}
	return d
}

// insertMessage applies the ts-ordered, duplicate-latest-wins insertion
// rule (spec.md §5) and bumps the channel's unread counter unless the
// channel is currently focused (spec.md §3 "Unread is monotone
// non-decreasing between calls to MarkRead").
func (c *Coordinator) insertMessage(m model.Message) {
	isNew := c.deque(m.ChannelID).Insert(m)
	if !isNew || m.ChannelID == c.focused {
		return
	}
	ch, ok := c.channels[m.ChannelID]
	if !ok {
		ch = model.Channel{ID: m.ChannelID}
	}
	ch.Unread++
	c.channels[m.ChannelID] = ch
}
