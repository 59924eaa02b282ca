// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Reload is sent on Watcher.Changes whenever the config file changed and
// was re-parsed successfully. Err is set instead when the file changed but
// failed to parse or validate; the previous Config stays in effect.
// cmd/chatterm drains Changes and logs each outcome; a reload is not applied
// to the running process.
type Reload struct {
	Config Config
	Err    error
}

// Watcher watches chatterm's config file for changes and republishes a
// freshly-parsed Config on Changes, debounced the way
// wingedpig-trellis/internal/watcher/binary.go debounces binary-change
// restarts, but scoped to a single path instead of a ref-counted set.
type Watcher struct {
	path      string
	loader    *Loader
	validator *Validator
	log       *slog.Logger

	fsw     *fsnotify.Watcher
	timerMu sync.Mutex
	timer   *time.Timer
	Changes chan Reload

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// NewWatcher opens an fsnotify watch on path. Changes is buffered 1 since
// its consumer only ever cares about the latest reload, not a backlog.
func NewWatcher(path string, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:      path,
		loader:    NewLoader(),
		validator: NewValidator(),
		log:       log,
		fsw:       fsw,
		Changes:   make(chan Reload, 1),
		closeCh:   make(chan struct{}),
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// Editors frequently replace a file via rename+create rather
			// than an in-place write; watch both so saves aren't missed.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.debounce(w.reload)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", "error", err)
		}
	}
}

// debounce coalesces a burst of fsnotify events for this single path into
// one call to fn, the way wingedpig-trellis/internal/watcher.Debouncer
// coalesces restarts for a ref-counted set of binaries — simplified here
// since a Watcher only ever watches one path, so there's no per-key map.
func (w *Watcher) debounce(fn func()) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDebounce, fn)
}

func (w *Watcher) reload() {
	cfg, err := w.loader.LoadWithDefaults(context.Background(), w.path)
	if err != nil {
		w.publish(Reload{Err: err})
		return
	}
	if err := w.validator.Validate(cfg); err != nil {
		w.publish(Reload{Err: err})
		return
	}
	w.publish(Reload{Config: *cfg})
}

func (w *Watcher) publish(r Reload) {
	select {
	case w.Changes <- r:
	default:
		// Drop the stale reload sitting in the buffer; the newest one wins.
		select {
		case <-w.Changes:
		default:
		}
		w.Changes <- r
	}
}

// Close stops the watcher and releases the fsnotify handle.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.closeCh)
		w.timerMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timerMu.Unlock()
		_ = w.fsw.Close()
	})
	w.wg.Wait()
	return nil
}
