// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package assistant supervises the locally-spawned AI assistant child
// process (spec.md §4.D): resolving and starting its binary, pairing with
// it over a one-time code, and dispatching webhook calls once paired. The
// process-lifecycle half is grounded on
// wingedpig-trellis/internal/service/process.go (StdoutPipe capture,
// process-group signalling, non-blocking shutdown); the HTTP half reuses
// go-resty the same way pkg/restclient does, against the assistant's own
// local gateway instead of the chat service.
package assistant

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"github.com/haldor/chatterm/internal/apperr"
	"github.com/haldor/chatterm/internal/logging"
)

// State is one of the four-plus-error states spec.md §4.D defines.
type State string

const (
	StateUnavailable State = "unavailable"
	StateStarting    State = "starting"
	StatePairing     State = "pairing"
	StateActive      State = "active"
	StateError       State = "error"
)

const (
	pairingScanDeadline  = 5 * time.Second
	defaultWebhookTimeout = 30 * time.Second
	maxResponseChars      = 20000
	healthProbeTimeout    = 3 * time.Second
)

var pairingCodeRe = regexp.MustCompile(`\b\d{6}\b`)

// Config is everything the orchestrator needs to resolve and run the
// assistant binary and reach its local gateway.
type Config struct {
	BinaryPath     string
	Args           []string
	GatewayPort    int
	WebhookTimeout time.Duration
}

func (c Config) webhookTimeout() time.Duration {
	if c.WebhookTimeout > 0 {
		return c.WebhookTimeout
	}
	return defaultWebhookTimeout
}

func (c Config) gatewayBase() string {
	return fmt.Sprintf("http://127.0.0.1:%d", c.GatewayPort)
}

// Orchestrator is the AssistantOrchestrator of spec.md §4.D. It owns the
// child-process handle and the bearer token; there is no back-reference
// to Coordinator (spec.md §9 "no cyclic references").
type Orchestrator struct {
	cfg Config
	log *slog.Logger
	http *resty.Client

	mu     sync.Mutex
	state  State
	cmd    *exec.Cmd
	bearer string
}

// New constructs an Orchestrator in StateUnavailable; call Start or
// Restore to bring it up.
func New(cfg Config, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:   cfg,
		log:   log,
		http:  resty.New().SetBaseURL(cfg.gatewayBase()).SetTimeout(cfg.webhookTimeout()),
		state: StateUnavailable,
	}
}

// State reports the orchestrator's current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Bearer returns the persisted bearer token, if any, for Coordinator to
// save into the session.
func (o *Orchestrator) Bearer() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bearer
}

// Start runs the full spawn-and-pair sequence (spec.md §4.D "Start
// sequence"). Binary-path resolution failure leaves the orchestrator in
// StateUnavailable, distinct from StateError: there is simply nothing to
// supervise.
func (o *Orchestrator) Start(ctx context.Context) error {
	if _, err := os.Stat(o.cfg.BinaryPath); err != nil {
		o.setState(StateUnavailable)
		return apperr.Validation("assistant binary not found: " + o.cfg.BinaryPath)
	}

	cmd, stdout, err := o.spawn(ctx)
	if err != nil {
		o.setState(StateError)
		return apperr.Network("failed to spawn assistant process", err)
	}
	o.mu.Lock()
	o.cmd = cmd
	o.mu.Unlock()
	o.setState(StateStarting)

	code, err := scanForPairingCode(stdout, pairingScanDeadline)
	if err != nil {
		o.killChild()
		o.setState(StateError)
		return apperr.Timeout("assistant did not print a pairing code in time", err)
	}

	o.setState(StatePairing)
	bearer, err := o.pair(ctx, code)
	if err != nil {
		// Invariant (spec.md §4.D): a failed pair step must not leak the
		// child process.
		o.killChild()
		o.setState(StateError)
		return err
	}

	o.mu.Lock()
	o.bearer = bearer
	o.mu.Unlock()
	o.setState(StateActive)
	return nil
}

// Restore starts the child with a previously persisted bearer, skipping
// pairing once /health confirms it's still accepted (spec.md §4.D
// "Restart with stored bearer"). Falls back to a full Start when the
// probe fails.
func (o *Orchestrator) Restore(ctx context.Context, bearer string) error {
	if bearer == "" {
		return o.Start(ctx)
	}

	if _, err := os.Stat(o.cfg.BinaryPath); err != nil {
		o.setState(StateUnavailable)
		return apperr.Validation("assistant binary not found: " + o.cfg.BinaryPath)
	}

	cmd, _, err := o.spawn(ctx)
	if err != nil {
		o.setState(StateError)
		return apperr.Network("failed to spawn assistant process", err)
	}
	o.mu.Lock()
	o.cmd = cmd
	o.bearer = bearer
	o.mu.Unlock()
	o.setState(StateStarting)

	if err := o.waitHealthy(ctx); err != nil {
		o.log.Warn("assistant: stored bearer rejected, re-pairing", "error", err)
		o.killChild()
		o.mu.Lock()
		o.bearer = ""
		o.mu.Unlock()
		return o.Start(ctx)
	}

	o.setState(StateActive)
	return nil
}

// waitHealthy polls /health with sethvargo/go-retry's exponential backoff
// until it succeeds or the overall deadline elapses; spec.md leaves the
// exact readiness-polling cadence unspecified, unlike the REST client's
// precisely-formulated retry combinator.
func (o *Orchestrator) waitHealthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout*3)
	defer cancel()

	b := retry.NewExponential(50 * time.Millisecond)
	b = retry.WithMaxRetries(5, b)
	return retry.Do(ctx, b, func(ctx context.Context) error {
		resp, err := o.http.R().SetContext(ctx).
			SetHeader("Authorization", "Bearer "+o.bearerSnapshot()).
			Get("/health")
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode() != 200 {
			return retry.RetryableError(fmt.Errorf("health check returned %d", resp.StatusCode()))
		}
		return nil
	})
}

func (o *Orchestrator) bearerSnapshot() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bearer
}

// spawn starts the assistant binary with stdout captured, mirroring
// Process.Start's process-group setup so killChild can signal the whole group.
func (o *Orchestrator) spawn(ctx context.Context) (*exec.Cmd, io.Reader, error) {
	cmd := exec.CommandContext(ctx, o.cfg.BinaryPath, o.cfg.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	return cmd, stdout, nil
}

// scanForPairingCode reads r line by line until it finds a six-digit code
// or deadline elapses.
func scanForPairingCode(r io.Reader, deadline time.Duration) (string, error) {
	type result struct {
		code string
		err  error
	}
	out := make(chan result, 1)

	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if m := pairingCodeRe.FindString(scanner.Text()); m != "" {
				out <- result{code: m}
				return
			}
		}
		out <- result{err: errors.New("stdout closed before a pairing code appeared")}
	}()

	select {
	case r := <-out:
		return r.code, r.err
	case <-time.After(deadline):
		return "", errors.New("timed out waiting for pairing code")
	}
}

// pair exchanges the one-time stdout code for a bearer token.
func (o *Orchestrator) pair(ctx context.Context, code string) (string, error) {
	resp, err := o.http.R().SetContext(ctx).
		SetHeader("X-Pairing-Code", code).
		Post("/pair")
	if err != nil {
		return "", apperr.Network("pairing request failed", err)
	}
	if resp.StatusCode() != 200 {
		return "", apperr.Auth("assistant rejected pairing code", nil)
	}

	var body struct {
		Bearer string `json:"bearer"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil || body.Bearer == "" {
		return "", apperr.ServerError("malformed /pair response")
	}
	o.log.Info("assistant: paired", "code", logging.RedactPairingCode(code))
	return body.Bearer, nil
}

// WebhookResponse is the result of a Send call.
type WebhookResponse struct {
	Body       string
	Truncated  bool
}

// Send dispatches payload to the assistant's /webhook endpoint
// (spec.md §4.D "Webhook dispatch").
func (o *Orchestrator) Send(ctx context.Context, payload WebhookPayload) (*WebhookResponse, error) {
	bearer := o.bearerSnapshot()
	if bearer == "" {
		return nil, apperr.Validation("assistant is not paired")
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.webhookTimeout())
	defer cancel()

	resp, err := o.http.R().SetContext(ctx).
		SetHeader("Authorization", "Bearer "+bearer).
		SetBody(payload).
		Post("/webhook")
	if err != nil {
		if isTimeout(err) {
			return nil, apperr.Timeout("assistant did not respond in time. Press R to retry.", err)
		}
		return nil, apperr.Network("assistant webhook request failed", err)
	}
	if resp.StatusCode() != 200 {
		return nil, apperr.ServerError(fmt.Sprintf("assistant webhook returned %d", resp.StatusCode()))
	}

	body := string(resp.Body())
	truncated := false
	if len(body) > maxResponseChars {
		body = body[:maxResponseChars]
		truncated = true
	}
	return &WebhookResponse{Body: body, Truncated: truncated}, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return strings.Contains(err.Error(), "context deadline exceeded")
}

// killChild fires a non-blocking SIGTERM at the child's process group
// and does not wait for it to exit — spec.md §4.D forbids blocking on a
// runtime handle at shutdown.
func (o *Orchestrator) killChild() {
	o.mu.Lock()
	cmd := o.cmd
	o.cmd = nil
	o.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	go func() {
		_ = syscall.Kill(-pid, syscall.SIGTERM)
	}()
}

// Close fires a fire-and-forget kill of the child process, if any. It
// does not block on the event loop or on the child's exit.
func (o *Orchestrator) Close() {
	o.killChild()
}
