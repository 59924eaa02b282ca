// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"sort"

	"github.com/haldor/chatterm/internal/model"
)

// MessageDeque holds one channel's messages in server order (sorted by
// ts), capped and FIFO-evicted from the front (spec.md §4.E "Bounded
// storage"). Re-inserting an existing ts replaces the prior entry rather
// than appending, so duplicate delivery after a reconnect always leaves
// the latest copy in place (spec.md §5 "If duplicates arrive (same ts),
// the latest wins.").
type MessageDeque struct {
	cap   int
	items []model.Message
}

// NewMessageDeque creates a deque capped at n entries.
func NewMessageDeque(n int) *MessageDeque {
	return &MessageDeque{cap: n}
}

// Insert places m in ts order. Returns true if this ts was not already
// present (a genuinely new message), false if it replaced a duplicate.
func (d *MessageDeque) Insert(m model.Message) bool {
	i := sort.Search(len(d.items), func(i int) bool { return d.items[i].TS >= m.TS })

	if i < len(d.items) && d.items[i].TS == m.TS {
		d.items[i] = m
		return false
	}

	d.items = append(d.items, model.Message{})
	copy(d.items[i+1:], d.items[i:])
	d.items[i] = m

	if d.cap > 0 && len(d.items) > d.cap {
		d.items = d.items[len(d.items)-d.cap:]
	}
	return true
}

// Remove deletes the message at ts, if present. Coordinator's deletion
// handlers do not call it: they mark the stored message Deleted and
// re-Insert it, so a deleted message stays in the deque as a tombstone.
func (d *MessageDeque) Remove(ts string) {
	i := sort.Search(len(d.items), func(i int) bool { return d.items[i].TS >= ts })
	if i < len(d.items) && d.items[i].TS == ts {
		d.items = append(d.items[:i], d.items[i+1:]...)
	}
}

// Get returns the message at ts, if present.
func (d *MessageDeque) Get(ts string) (model.Message, bool) {
	i := sort.Search(len(d.items), func(i int) bool { return d.items[i].TS >= ts })
	if i < len(d.items) && d.items[i].TS == ts {
		return d.items[i], true
	}
	return model.Message{}, false
}

// Items returns a copy of the messages in display order.
func (d *MessageDeque) Items() []model.Message {
	out := make([]model.Message, len(d.items))
	copy(out, d.items)
	return out
}

// Len reports the number of stored messages.
func (d *MessageDeque) Len() int { return len(d.items) }
