// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package restclient is chatterm's typed Go binding to the chat service's
// REST surface (spec.md §4.B). Like wingedpig-trellis/pkg/client, it is a
// standalone, importable client library: a Client exposes resource-scoped
// sub-clients, every public method is context-aware, and every failure
// comes back as a single structured error type — here, *apperr.ChatError.
//
// Every write and the thread-replies read path are automatically retried
// through the package's retry combinator (see retry.go): callers never
// implement their own retry loop.
package restclient

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"
)

const (
	defaultUserAgent   = "chatterm/1.0"
	connectTimeout     = 10 * time.Second
	requestTimeout     = 30 * time.Second
	userCacheTTL       = 600 * time.Second
)

// Client is a chat-service REST client. Safe for concurrent use: the only
// shared mutable state is the user cache, guarded by its own lock and
// coalesced with singleflight (spec.md §5).
type Client struct {
	http      *resty.Client
	baseURL   string
	userAgent string

	cache userCache
	sf    singleflight.Group

	Auth     *AuthClient
	Channels *ChannelsClient
	Messages *MessagesClient
	Users    *UsersClient
	Files    *FilesClient
	Stream   *StreamClient
}

// Option configures a Client at construction.
type Option func(*Client)

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient swaps the underlying resty client, e.g. for injecting a
// mock transport in tests.
func WithHTTPClient(hc *resty.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client pointed at baseURL (e.g. "https://slack.com/api").
// TLS verification is left at resty's default (the Go stdlib's webpki
// trust store) — spec.md §4.B explicitly forbids a system-CA override.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		userAgent: defaultUserAgent,
		cache:     newUserCache(userCacheTTL),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		transport := &http.Transport{
			DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
		}
		c.http = resty.New().
			SetBaseURL(baseURL).
			SetTimeout(requestTimeout).
			SetTransport(transport).
			// resty's own retry mechanism is disabled: the spec's retry
			// combinator (retry.go) drives every retry decision so that
			// rate-limit vs. transient vs. terminal classification stays
			// in one place, per spec.md §9 "retry uniformity".
			SetRetryCount(0)
	}
	c.http.SetHeader("User-Agent", c.userAgent)

	c.Auth = &AuthClient{c: c}
	c.Channels = &ChannelsClient{c: c}
	c.Messages = &MessagesClient{c: c}
	c.Users = &UsersClient{c: c}
	c.Files = &FilesClient{c: c}
	c.Stream = &StreamClient{c: c}

	return c
}

// envelope is the chat service's standard response wrapper: every
// response carries `ok`, and when ok is false, `error` classifies the
// failure per spec.md §6.
type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx)
}
