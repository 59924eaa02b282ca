// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"
)

// Validator validates configuration against schema rules.
type Validator struct{}

// NewValidator creates a new config validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty returns true if there are no validation errors.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add adds a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks configuration validity against the fields spec.md §6
// requires to construct the OAuth flow and the assistant orchestrator.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	if cfg.ChatService.ClientID == "" {
		errs.Add("chat_service.client_id", "must not be empty")
	}
	if cfg.ChatService.BaseURL == "" {
		errs.Add("chat_service.base_url", "must not be empty")
	}
	if cfg.ChatService.RedirectPort <= 0 || cfg.ChatService.RedirectPort > 65535 {
		errs.Add("chat_service.redirect_port", "must be a valid TCP port")
	}

	if cfg.Assistant.AutoStart && cfg.Assistant.BinaryPath == "" {
		errs.Add("assistant.binary_path", "required when assistant.auto_start is true")
	}
	if cfg.Assistant.GatewayPort <= 0 || cfg.Assistant.GatewayPort > 65535 {
		errs.Add("assistant.gateway_port", "must be a valid TCP port")
	}
	if cfg.Assistant.GatewayPort == cfg.ChatService.RedirectPort {
		errs.Add("assistant.gateway_port", "must differ from chat_service.redirect_port")
	}

	if !errs.IsEmpty() {
		return errs
	}
	return nil
}
