// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package logging sets up chatterm's structured logger and the single
// redaction helper every component must funnel secrets through before they
// reach a log line or a user-visible error string (spec.md §4.C, §4.D, §7).
package logging

import (
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// New creates the process-wide slog.Logger, writing JSON to stderr so it
// never interleaves with the terminal UI's own stdout rendering.
func New(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

// knownCredentialPrefixes are the chat-service credential prefixes
// actionable_error (spec.md §7) must scrub from any surfaced string, on top
// of the literal "Bearer " prefix.
var knownCredentialPrefixes = []string{"xoxp-", "xoxb-", "xapp-", "xoxc-"}

// tokenInURL matches a token/code query parameter in a URL, used to redact
// the streaming URL's token before it is ever logged (spec.md §4.C).
var tokenInURL = regexp.MustCompile(`(?i)([?&](?:token|code)=)[^&\s]+`)

// Redact scrubs the token after "Bearer ", credentials with a known prefix,
// and URL token/code query parameters out of s. Six-digit pairing codes are
// not touched here; RedactPairingCode handles those. It is intentionally a single
// shared choke point: every log call and every user-facing error string
// passes through here exactly once (spec.md §7's "single actionable_error
// helper").
func Redact(s string) string {
	s = tokenInURL.ReplaceAllString(s, "${1}REDACTED")

	if idx := strings.Index(s, "Bearer "); idx != -1 {
		end := idx + len("Bearer ")
		rest := s[end:]
		tokEnd := strings.IndexAny(rest, " \t\n\"'")
		if tokEnd == -1 {
			tokEnd = len(rest)
		}
		s = s[:end] + "REDACTED" + rest[tokEnd:]
	}

	for _, prefix := range knownCredentialPrefixes {
		s = redactPrefixed(s, prefix)
	}

	return s
}

// redactPrefixed replaces every run of prefix+credential-bytes in s with
// prefix+"REDACTED", scanning forward from after each replacement so the
// search never revisits a span it already rewrote — "REDACTED" itself is
// made of credential bytes, so re-searching from the start would find the
// same match forever.
func redactPrefixed(s, prefix string) string {
	var b strings.Builder
	rest := s
	for {
		idx := strings.Index(rest, prefix)
		if idx == -1 {
			b.WriteString(rest)
			break
		}
		end := idx + len(prefix)
		for end < len(rest) && isCredentialByte(rest[end]) {
			end++
		}
		b.WriteString(rest[:idx])
		b.WriteString(prefix)
		b.WriteString("REDACTED")
		rest = rest[end:]
	}
	return b.String()
}

func isCredentialByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '-' || b == '_'
}

// RedactPairingCode replaces a six-digit pairing code with a fixed-width
// placeholder so it never appears verbatim in logs (spec.md §4.D).
var sixDigitCode = regexp.MustCompile(`\b\d{6}\b`)

func RedactPairingCode(s string) string {
	return sixDigitCode.ReplaceAllString(s, "REDACTED")
}
