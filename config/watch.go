// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchFile calls onChange each time the file at path is written or replaced.
// It runs until ctx is cancelled.
//
// The parent directory is watched rather than the file itself, since a file
// watch is lost when an editor or downloader replaces the file via rename.
func WatchFile(ctx context.Context, path string, onChange func()) error {
	path = filepath.Clean(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	slog.Info("watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			// A rename onto path shows up as Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher error", "path", path, "err", err)
		}
	}
}

// Watch reloads the config file at path whenever it changes and passes the new
// Config to onChange. If a reload fails, the error is logged and onChange
// isn't called.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	return WatchFile(ctx, path, func() {
		cfg, err := Load(path)
		if err != nil {
			slog.Error("config reload failed; keeping previous config", "path", path, "err", err)
			return
		}
		slog.Info("config reloaded", "path", path)
		onChange(cfg)
	})
}
