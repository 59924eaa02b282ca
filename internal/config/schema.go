// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config loads chatterm's hjson configuration file (spec.md §6)
// and watches it for changes. The parsing shape — hjson decoded to a
// generic map, round-tripped through encoding/json into a typed struct —
// and the loader's FindConfig/applyDefaults split are both grounded on
// wingedpig-trellis/internal/config/loader.go.
package config

// Config is chatterm's top-level configuration, covering the three
// sections spec.md §6 names: the chat service OAuth client, the local
// assistant process, and the LLM credentials the assistant itself needs.
type Config struct {
	ChatService ChatServiceConfig `json:"chat_service"`
	Assistant   AssistantConfig   `json:"assistant"`
	LLM         LLMConfig         `json:"llm"`
}

// ChatServiceConfig holds the OAuth client registration used to obtain a
// user credential from the chat service (spec.md §6).
type ChatServiceConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthURL      string `json:"auth_url"`
	TokenURL     string `json:"token_url"`
	BaseURL      string `json:"base_url"`
	RedirectPort int    `json:"redirect_port"`
}

// AssistantConfig describes how to spawn and reach the local assistant
// process (spec.md §4.D, §6).
type AssistantConfig struct {
	BinaryPath     string   `json:"binary_path"`
	Args           []string `json:"args"`
	GatewayPort    int      `json:"gateway_port"`
	AutoStart      bool     `json:"auto_start"`
	TimeoutSeconds int      `json:"timeout_seconds"`
}

// LLMConfig carries the credentials the assistant process itself is
// launched with; chatterm never calls the provider directly (spec.md §6).
type LLMConfig struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}

// Redact returns a copy of cfg with every credential field blanked, safe
// to pass to internal/logging for a config-loaded log line.
func (c Config) Redact() Config {
	redacted := c
	if redacted.ChatService.ClientSecret != "" {
		redacted.ChatService.ClientSecret = "«redacted»"
	}
	if redacted.LLM.APIKey != "" {
		redacted.LLM.APIKey = "«redacted»"
	}
	return redacted
}
