// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Command chatterm is the process entrypoint: it loads configuration,
// opens the encrypted session vault, wires the assistant orchestrator and
// Coordinator, and runs until a signal or the UI requests shutdown.
// Terminal rendering, key bindings, and the interactive UI loop itself are
// out of scope (spec.md §1); this package contains no UI, and Coordinator
// exposes its Render channel and state accessors for one to use.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haldor/chatterm/internal/apperr"
	"github.com/haldor/chatterm/internal/assistant"
	"github.com/haldor/chatterm/internal/config"
	"github.com/haldor/chatterm/internal/coordinator"
	"github.com/haldor/chatterm/internal/logging"
	"github.com/haldor/chatterm/internal/vault"
)

var version = "0.1"

func main() {
	var (
		configPath  string
		dataDir     string
		showVersion bool
		debug       bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: auto-detect)")
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.StringVar(&dataDir, "data-dir", defaultDataDir(), "Directory for session.json and .secret_key")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if showVersion {
		fmt.Printf("chatterm %s\n", version)
		os.Exit(0)
	}

	log := logging.New(debug)
	apperr.SetRedactor(logging.Redact)

	loader := config.NewLoader()
	if configPath == "" {
		found, err := loader.FindConfig()
		if err != nil {
			log.Error("config not found", "error", err)
			os.Exit(1)
		}
		configPath = found
	}

	cfg, err := loader.LoadWithDefaults(context.Background(), configPath)
	if err != nil {
		log.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		log.Error("config failed validation", "error", err)
		os.Exit(1)
	}
	log.Info("loaded config", "path", configPath, "config", fmt.Sprintf("%+v", cfg.Redact()))

	v := vault.New(dataDir)

	session, err := coordinator.LoadSession(v)
	if err != nil {
		ce, _ := apperr.As(err)
		if ce != nil && ce.Code == apperr.CodeCorrupted {
			log.Error("session file failed integrity verification; re-onboarding required", "error", err)
		} else {
			log.Error("failed to load session", "error", err)
		}
		os.Exit(1)
	}

	var asst *assistant.Orchestrator
	if cfg.Assistant.AutoStart {
		asst = assistant.New(assistant.Config{
			BinaryPath:     cfg.Assistant.BinaryPath,
			Args:           cfg.Assistant.Args,
			GatewayPort:    cfg.Assistant.GatewayPort,
			WebhookTimeout: time.Duration(cfg.Assistant.TimeoutSeconds) * time.Second,
		}, log)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		// Restore falls back to a full Start when session.AssistantBearer
		// is empty or the gateway no longer honors it (spec.md §4.D
		// "Restart with stored bearer").
		startErr := asst.Restore(ctx, session.AssistantBearer)
		cancel()
		if startErr != nil {
			// The assistant is an optional companion process; its absence
			// degrades chatterm to chat-only rather than refusing to start.
			log.Warn("assistant failed to start; continuing without it", "error", startErr)
			asst = nil
		} else if bearer := asst.Bearer(); bearer != session.AssistantBearer {
			session.AssistantBearer = bearer
			if err := v.Save(session); err != nil {
				log.Warn("failed to persist refreshed assistant bearer", "error", err)
			}
		}
	}

	co := coordinator.New(*cfg, v, session, asst, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := config.NewWatcher(configPath, log)
	if err != nil {
		log.Warn("config watcher unavailable; hot reload disabled", "error", err)
	} else {
		defer watcher.Close()
		go relayConfigReloads(ctx, watcher, log)
	}

	if err := co.Run(ctx); err != nil {
		log.Error("coordinator exited with error", "error", err)
		os.Exit(1)
	}

	os.Exit(0)
}

// relayConfigReloads logs config hot-reload outcomes. A full re-wire of
// live workspaces on credential change is future work; today a reload only
// takes effect on the next restart, but a malformed edit is still surfaced
// immediately rather than silently ignored until then.
func relayConfigReloads(ctx context.Context, w *config.Watcher, log interface {
	Info(string, ...any)
	Warn(string, ...any)
}) {
	for {
		select {
		case <-ctx.Done():
			return
		case reload := <-w.Changes:
			if reload.Err != nil {
				log.Warn("config reload failed", "error", reload.Err)
				continue
			}
			log.Info("config file changed; restart to apply")
		}
	}
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return dir + "/chatterm"
}
