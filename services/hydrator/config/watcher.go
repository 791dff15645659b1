// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config at path whenever it changes.
//
// # Description
//
// Watches the file's directory rather than the file itself, so editors
// that replace the file by rename are seen. Each write, create or rename
// of path triggers a reload. An empty or unreadable file is skipped. A
// valid result is passed to onChange. An invalid one is logged and
// ignored, leaving the caller on its previous config.
//
// Blocks until ctx is done. Run it in a goroutine.
//
// # Inputs
//
//   - ctx: Stops the watcher.
//   - path: Config file.
//   - logger: Nil means slog.Default().
//   - onChange: Called from the watcher goroutine with each valid config.
//
// # Outputs
//
//   - error: Non-nil only if the watch could not be set up.
//
// # Example
//
//	go config.Watch(ctx, path, logger, func(cfg *config.Config) {
//	    pool.SetEndpoints(cfg.Backend.Endpoints)
//	})
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Debug("watching config", "path", abs)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			data, err := os.ReadFile(abs)
			if err != nil || len(data) == 0 {
				// Truncated mid-write or moved away. The next event reloads.
				continue
			}
			cfg, err := Parse(data)
			if err != nil {
				logger.Warn("ignoring invalid config change",
					"path", abs,
					"error", err,
				)
				continue
			}
			logger.Info("config reloaded", "path", abs)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)

		case <-ctx.Done():
			logger.Debug("config watcher stopping", "path", abs)
			return nil
		}
	}
}
