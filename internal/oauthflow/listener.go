// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package oauthflow runs the local OAuth redirect listener and performs
// the authorization-code exchange described in spec.md §6. The listener
// lifecycle (gorilla/mux single-route registration, graceful non-os.Exit
// shutdown) is grounded on wingedpig-trellis/internal/api/router.go's
// Server type.
package oauthflow

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/haldor/chatterm/internal/apperr"
)

// Listener is a one-shot local HTTP server that captures the
// authorization code from the chat service's OAuth redirect.
type Listener struct {
	server   *http.Server
	ln       net.Listener
	resultCh chan result
	state    string
}

type result struct {
	code string
	err  error
}

// NewListener binds 127.0.0.1:port immediately so Port() is available
// before Listen is called (port 0 lets the OS pick a free port, used by
// tests). Binding at construction, not at Listen, means a port conflict
// surfaces before the user is sent to the chat service's consent page.
func NewListener(port int) (*Listener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, apperr.Network("failed to bind OAuth redirect listener", err)
	}

	l := &Listener{ln: ln, resultCh: make(chan result, 1)}

	r := mux.NewRouter()
	r.HandleFunc("/", l.handleRedirect).Methods("GET")
	l.server = &http.Server{Handler: r}

	return l, nil
}

// ExpectState pins the CSRF state value the redirect's state query
// parameter must match, set from GenerateState's return value before the
// user is sent to AuthCodeURL. Call before Listen. A Listener with no
// pinned state accepts any (or no) state parameter.
func (l *Listener) ExpectState(state string) {
	l.state = state
}

// Port returns the bound TCP port.
func (l *Listener) Port() int {
	return l.ln.Addr().(*net.TCPAddr).Port
}

// RedirectURL returns the URL the chat service should redirect back to.
func (l *Listener) RedirectURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/", l.Port())
}

func (l *Listener) handleRedirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errMsg := q.Get("error"); errMsg != "" {
		l.resultCh <- result{err: fmt.Errorf("authorization denied: %s", errMsg)}
		http.Error(w, "Authorization denied. You may close this window.", http.StatusOK)
		return
	}

	if l.state != "" && q.Get("state") != l.state {
		l.resultCh <- result{err: errors.New("redirect state parameter did not match the expected value")}
		http.Error(w, "Invalid state parameter.", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		l.resultCh <- result{err: errors.New("redirect carried no code parameter")}
		http.Error(w, "Missing authorization code.", http.StatusBadRequest)
		return
	}

	l.resultCh <- result{code: code}
	fmt.Fprint(w, "Signed in. You may close this window and return to chatterm.")
}

// Listen serves until a redirect arrives, ctx is cancelled, or the server
// fails, then shuts down cleanly — never os.Exit — and returns the
// authorization code.
func (l *Listener) Listen(ctx context.Context) (string, error) {
	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- l.server.Serve(l.ln)
	}()

	var res result
	select {
	case res = <-l.resultCh:
	case err := <-serveErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return "", apperr.Network("OAuth redirect listener failed", err)
		}
		return "", errors.New("OAuth redirect listener stopped before receiving a code")
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = l.server.Shutdown(shutdownCtx)

	if res.err != nil {
		return "", res.err
	}
	return res.code, nil
}
