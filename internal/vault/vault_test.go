// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package vault

import (
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haldor/chatterm/internal/apperr"
	"github.com/haldor/chatterm/internal/model"
)

func testSession() *model.Session {
	return &model.Session{
		Workspaces: []model.Workspace{
			{TeamID: "T1", TeamName: "Test Team", UserCred: "xoxp-a", AppCred: "xapp-b", UserID: "U1", Active: true},
		},
	}
}

// S1 — Session round-trip.
func TestVault_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	v := New(dir)

	session := testSession()
	require.NoError(t, v.Save(session))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(v.sessionPath())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		keyInfo, err := os.Stat(v.keyPath())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), keyInfo.Mode().Perm())
	}

	loaded, err := v.Load()
	require.NoError(t, err)
	assert.Equal(t, session, loaded)
}

func TestVault_LoadMissing(t *testing.T) {
	v := New(t.TempDir())
	_, err := v.Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

// S2/Property 2 — tamper detection: any single-byte mutation of the
// ciphertext or nonce must surface as CodeCorrupted, never a partial
// decode.
func TestVault_TamperDetection(t *testing.T) {
	dir := t.TempDir()
	v := New(dir)
	require.NoError(t, v.Save(testSession()))

	raw, err := os.ReadFile(v.sessionPath())
	require.NoError(t, err)

	for _, idx := range []int{0, nonceSize, len(raw) - 1} {
		mutated := append([]byte(nil), raw...)
		mutated[idx] ^= 0xFF
		require.NoError(t, os.WriteFile(v.sessionPath(), mutated, 0o600))

		_, err := v.Load()
		require.Error(t, err)
		ce, ok := apperr.As(err)
		require.True(t, ok, "expected a *apperr.ChatError")
		assert.Equal(t, apperr.CodeCorrupted, ce.Code)
	}

	// restore untouched file so other assertions in this test file aren't affected
	require.NoError(t, os.WriteFile(v.sessionPath(), raw, 0o600))
}

func TestVault_Purge(t *testing.T) {
	dir := t.TempDir()
	v := New(dir)
	require.NoError(t, v.Save(testSession()))

	require.NoError(t, v.Purge())

	_, err := os.Stat(v.sessionPath())
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(v.keyPath())
	assert.True(t, os.IsNotExist(err))
}

func TestVault_SaveRejectsInvalidSession(t *testing.T) {
	v := New(t.TempDir())
	bad := &model.Session{Workspaces: []model.Workspace{{TeamID: "T1"}}}
	err := v.Save(bad)
	require.Error(t, err)
	ce, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, ce.Code)
}
