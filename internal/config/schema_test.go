// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_RedactBlanksCredentials(t *testing.T) {
	cfg := Config{
		ChatService: ChatServiceConfig{ClientID: "id-1", ClientSecret: "shh"},
		LLM:         LLMConfig{Provider: "anthropic", APIKey: "sk-secret"},
	}

	redacted := cfg.Redact()

	assert.Equal(t, "id-1", redacted.ChatService.ClientID)
	assert.Equal(t, "«redacted»", redacted.ChatService.ClientSecret)
	assert.Equal(t, "anthropic", redacted.LLM.Provider)
	assert.Equal(t, "«redacted»", redacted.LLM.APIKey)

	// Original is untouched.
	assert.Equal(t, "shh", cfg.ChatService.ClientSecret)
	assert.Equal(t, "sk-secret", cfg.LLM.APIKey)
}

func TestConfig_RedactLeavesEmptyCredentialsEmpty(t *testing.T) {
	cfg := Config{}
	redacted := cfg.Redact()
	assert.Empty(t, redacted.ChatService.ClientSecret)
	assert.Empty(t, redacted.LLM.APIKey)
}
