// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haldor/chatterm/internal/model"
)

func TestMessageDeque_InsertOrdersByTS(t *testing.T) {
	d := NewMessageDeque(10)
	d.Insert(model.Message{ChannelID: "C1", TS: "3.0", Text: "third"})
	d.Insert(model.Message{ChannelID: "C1", TS: "1.0", Text: "first"})
	d.Insert(model.Message{ChannelID: "C1", TS: "2.0", Text: "second"})

	items := d.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "first", items[0].Text)
	assert.Equal(t, "second", items[1].Text)
	assert.Equal(t, "third", items[2].Text)
}

func TestMessageDeque_DuplicateTSLatestWins(t *testing.T) {
	d := NewMessageDeque(10)

	isNew := d.Insert(model.Message{ChannelID: "C1", TS: "1.0", Text: "original"})
	assert.True(t, isNew)

	isNew = d.Insert(model.Message{ChannelID: "C1", TS: "1.0", Text: "edited"})
	assert.False(t, isNew, "re-inserting an existing ts must not count as a new message")

	items := d.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "edited", items[0].Text)
}

func TestMessageDeque_CapEvictsOldest(t *testing.T) {
	d := NewMessageDeque(3)
	for i := 0; i < 5; i++ {
		d.Insert(model.Message{ChannelID: "C1", TS: fmt.Sprintf("%d.0", i)})
	}

	items := d.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "2.0", items[0].TS)
	assert.Equal(t, "3.0", items[1].TS)
	assert.Equal(t, "4.0", items[2].TS)
}

func TestMessageDeque_GetAndRemove(t *testing.T) {
	d := NewMessageDeque(10)
	d.Insert(model.Message{ChannelID: "C1", TS: "1.0", Text: "hi"})

	m, ok := d.Get("1.0")
	require.True(t, ok)
	assert.Equal(t, "hi", m.Text)

	d.Remove("1.0")
	_, ok = d.Get("1.0")
	assert.False(t, ok)
}
