// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chatterm.hjson")
	require.NoError(t, os.WriteFile(path, []byte(`{chat_service:{client_id:"one",base_url:"https://a"}}`), 0o600))

	w, err := NewWatcher(path, discardLogger())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte(`{chat_service:{client_id:"two",base_url:"https://a"}}`), 0o600))

	select {
	case r := <-w.Changes:
		require.NoError(t, r.Err)
		assert.Equal(t, "two", r.Config.ChatService.ClientID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcher_InvalidRewriteReportsErr(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chatterm.hjson")
	require.NoError(t, os.WriteFile(path, []byte(`{chat_service:{client_id:"one",base_url:"https://a"}}`), 0o600))

	w, err := NewWatcher(path, discardLogger())
	require.NoError(t, err)
	defer w.Close()

	// Missing required fields: fails Validate, not the hjson parse.
	require.NoError(t, os.WriteFile(path, []byte(`{chat_service:{}}`), 0o600))

	select {
	case r := <-w.Changes:
		require.Error(t, r.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chatterm.hjson")
	require.NoError(t, os.WriteFile(path, []byte(`{chat_service:{client_id:"one",base_url:"https://a"}}`), 0o600))

	w, err := NewWatcher(path, discardLogger())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close()) // idempotent
}
