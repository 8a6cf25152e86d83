// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package i18n

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// LoadDir merges every "<locale>.yaml" file in dir over the catalog.
// Files for locales outside Supported are still loaded but are only
// reachable through Lookup with the exact code.
func (c *Catalog) LoadDir(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return err
	}
	for _, file := range matches {
		if err := c.loadFile(file); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) loadFile(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("i18n: read overlay: %w", err)
	}
	locale := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	return c.Merge(locale, data)
}

// Watch reloads overlay files in dir whenever they are written or created.
// It blocks until ctx is cancelled. Parse errors are logged and the
// previous strings stay in effect.
//
// # Limitations
//
//   - Keys removed from an overlay keep their last loaded value until restart.
func (c *Catalog) Watch(ctx context.Context, dir string, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("i18n: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("i18n: watch %s: %w", dir, err)
	}
	logger.Info("Watching catalog overlay directory", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".yaml" {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := c.loadFile(event.Name); err != nil {
				logger.Warn("Catalog overlay reload failed", "file", event.Name, "error", err)
				continue
			}
			logger.Info("Catalog overlay reloaded", "file", event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Catalog watcher error", "error", err)
		}
	}
}
