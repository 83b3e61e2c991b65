// Copyright (c) 2025 OncoSight AI
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces the write bursts editors produce when saving.
const debounceWindow = 200 * time.Millisecond

// Watch reloads the config file whenever it changes and calls onReload
// with the new configuration. A change that fails to parse or validate is
// logged and skipped; the running config stays in effect.
//
// The watcher runs until stop is closed. Watching the directory rather
// than the file survives the rename-based atomic saves this package and
// most editors perform.
func Watch(path string, onReload func(Config), stop <-chan struct{}) error {
	if path == "" {
		path = DefaultPath()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	go func() {
		defer watcher.Close()

		var pending *time.Timer
		var pendingC <-chan time.Time

		for {
			select {
			case <-stop:
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if pending == nil {
					pending = time.NewTimer(debounceWindow)
					pendingC = pending.C
				} else {
					pending.Reset(debounceWindow)
				}

			case <-pendingC:
				pending = nil
				pendingC = nil
				cfg, err := Load(path)
				if err != nil {
					log.Printf("config: ignoring bad reload: %v", err)
					continue
				}
				log.Printf("config: reloaded from %s", path)
				onReload(cfg)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("config: watcher error: %v", err)
			}
		}
	}()

	return nil
}
