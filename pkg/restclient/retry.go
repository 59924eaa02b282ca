// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package restclient

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/haldor/chatterm/internal/apperr"
)

const (
	maxRetryAttempts = 3
	retryBaseDelay   = 1 * time.Second
	rateLimitDefault = 60 * time.Second
)

// sleeper is injectable through withRetrySleeper so the retry combinator's
// sleeps can be replaced without actually blocking for tens of seconds
// (spec.md property "rate-limit respect" and scenario S2).
type sleeper func(context.Context, time.Duration)

var defaultSleeper sleeper = func(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// doer is the signature every retried closure implements: issue the
// request, return the raw response and any transport-level error. It is
// called again on every retry so that, per spec.md §4.B, cache lookups and
// any other attempt-local state are re-evaluated fresh on each attempt.
type doer func(ctx context.Context) (*resty.Response, error)

// withRetry is the single retry combinator spec.md §4.B and §9 require
// every write and the thread-replies read path to flow through.
//
// Classification:
//   - rate-limited (429, or body error in {"rate_limited","ratelimited"}):
//     sleep Retry-After seconds if present, else 60s. Only counts against
//     the attempt budget when the server gave no explicit Retry-After.
//   - retryable transient (network error, 5xx, timeout): sleep
//     base*2^attempt + jitter(0..500ms); retry.
//   - terminal (auth, validation, other 4xx): return immediately.
//
// Maximum 3 retry attempts; after exhaustion, the last error is returned
// unchanged.
func (c *Client) withRetry(ctx context.Context, fn doer) (*resty.Response, error) {
	return withRetrySleeper(ctx, fn, defaultSleeper)
}

func withRetrySleeper(ctx context.Context, fn doer, sleep sleeper) (*resty.Response, error) {
	var lastErr error
	attempt := 0

	for {
		resp, err := fn(ctx)
		classified := classify(resp, err)
		if classified == nil {
			return resp, nil
		}
		lastErr = classified

		ce, _ := apperr.As(classified)

		switch {
		case ce != nil && ce.Code == apperr.CodeRateLimited:
			wait := rateLimitDefault
			countsAgainstBudget := ce.RetryAfter <= 0
			if ce.RetryAfter > 0 {
				wait = time.Duration(ce.RetryAfter) * time.Second
			}
			if countsAgainstBudget {
				attempt++
				if attempt > maxRetryAttempts {
					return resp, lastErr
				}
			}
			sleep(ctx, wait)

		case ce != nil && ce.Retryable():
			attempt++
			if attempt > maxRetryAttempts {
				return resp, lastErr
			}
			jitter := time.Duration(rand.Intn(500)) * time.Millisecond
			backoff := retryBaseDelay * time.Duration(1<<uint(attempt-1))
			sleep(ctx, backoff+jitter)

		default:
			// Terminal: authentication, validation, or any other 4xx.
			return resp, lastErr
		}

		if ctx.Err() != nil {
			return resp, ctx.Err()
		}
	}
}

// classify turns a raw resty response/error pair into a *apperr.ChatError,
// or nil if the call succeeded.
func classify(resp *resty.Response, err error) error {
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return apperr.Timeout("request timed out", err)
		}
		return apperr.Network("request failed", err)
	}

	if resp == nil {
		return apperr.Network("no response", nil)
	}

	status := resp.StatusCode()

	if status == http.StatusTooManyRequests {
		return apperr.RateLimited(retryAfterSeconds(resp), errors.New(resp.String()))
	}

	var env envelope
	_ = json.Unmarshal(resp.Body(), &env)

	if env.Error == "rate_limited" || env.Error == "ratelimited" {
		return apperr.RateLimited(retryAfterSeconds(resp), errors.New(env.Error))
	}

	if status >= 500 {
		return apperr.Network("server error", errors.New(resp.String()))
	}

	if !env.OK && env.Error != "" {
		switch env.Error {
		case "invalid_auth", "not_authed", "account_inactive", "token_revoked", "token_expired":
			return apperr.Auth(env.Error, nil)
		case "invalid_arguments", "invalid_channel", "invalid_cursor", "bad_request":
			return apperr.Validation(env.Error)
		default:
			if status >= 400 && status < 500 {
				return apperr.Validation(env.Error)
			}
			return apperr.ServerError(env.Error)
		}
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return apperr.Auth("unauthorized", nil)
	}
	if status >= 400 {
		return apperr.Validation(resp.String())
	}

	return nil
}

func retryAfterSeconds(resp *resty.Response) int {
	h := resp.Header().Get("Retry-After")
	if h == "" {
		return 0
	}
	secs, err := strconv.Atoi(h)
	if err != nil || secs <= 0 {
		return 0
	}
	return secs
}
