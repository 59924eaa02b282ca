// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package oauthflow

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/haldor/chatterm/internal/apperr"
)

// GenerateState returns a fresh random CSRF state value for AuthCodeURL to
// embed and Listener.ExpectState to verify against the redirect (spec.md
// §6). A uuid is used rather than a shorter random token since it's
// already a direct dependency for this exact purpose.
func GenerateState() string {
	return uuid.NewString()
}

// Endpoint identifies the chat service's OAuth authorization and token
// URLs (spec.md §6).
type Endpoint struct {
	AuthURL  string
	TokenURL string
}

// NewConfig builds an oauth2.Config pointed at the chat service, bound to
// a local redirect listener.
func NewConfig(clientID, clientSecret string, scopes []string, ep Endpoint, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       scopes,
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  ep.AuthURL,
			TokenURL: ep.TokenURL,
		},
	}
}

// AuthCodeURL builds the URL to open in the user's browser, with state as
// CSRF protection (spec.md §6; state should come from GenerateState, and
// the same value passed to Listener.ExpectState before Listen is called).
func AuthCodeURL(cfg *oauth2.Config, state string) string {
	return cfg.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token.
func Exchange(ctx context.Context, cfg *oauth2.Config, code string) (*oauth2.Token, error) {
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, apperr.Auth("authorization code exchange failed", err)
	}
	return tok, nil
}
