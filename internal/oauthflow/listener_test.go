// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauthflow

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListener_CapturesCode(t *testing.T) {
	l, err := NewListener(0)
	require.NoError(t, err)

	resultCh := make(chan struct {
		code string
		err  error
	}, 1)
	go func() {
		code, err := l.Listen(context.Background())
		resultCh <- struct {
			code string
			err  error
		}{code, err}
	}()

	// Give the server a moment to start accepting.
	time.Sleep(20 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/?code=abc123&state=xyz", l.Port()))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case res := <-resultCh:
		require.NoError(t, res.err)
		assert.Equal(t, "abc123", res.code)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for listener result")
	}
}

func TestListener_RejectsMismatchedState(t *testing.T) {
	l, err := NewListener(0)
	require.NoError(t, err)
	l.ExpectState("expected-state")

	resultCh := make(chan struct {
		code string
		err  error
	}, 1)
	go func() {
		code, err := l.Listen(context.Background())
		resultCh <- struct {
			code string
			err  error
		}{code, err}
	}()

	time.Sleep(20 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/?code=abc123&state=wrong-state", l.Port()))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	select {
	case res := <-resultCh:
		require.Error(t, res.err)
		assert.Empty(t, res.code)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for listener result")
	}
}

func TestListener_CapturesDenialAsError(t *testing.T) {
	l, err := NewListener(0)
	require.NoError(t, err)

	resultCh := make(chan struct {
		code string
		err  error
	}, 1)
	go func() {
		code, err := l.Listen(context.Background())
		resultCh <- struct {
			code string
			err  error
		}{code, err}
	}()

	time.Sleep(20 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/?error=access_denied", l.Port()))
	require.NoError(t, err)
	defer resp.Body.Close()

	select {
	case res := <-resultCh:
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "access_denied")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for listener result")
	}
}

func TestListener_ContextCancelShutsDownCleanly(t *testing.T) {
	l, err := NewListener(0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	resultCh := make(chan struct {
		code string
		err  error
	}, 1)
	go func() {
		code, err := l.Listen(ctx)
		resultCh <- struct {
			code string
			err  error
		}{code, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case res := <-resultCh:
		assert.Error(t, res.err)
		assert.Empty(t, res.code)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for listener result after cancel")
	}
}
