package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"framekit/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it is written and passes the new settings to
// fn. Files that fail to load are logged and skipped. Watch blocks until ctx
// is done.
func Watch(ctx context.Context, path string, fn func(Settings)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	defer w.Close()

	// Editors often replace the file, so watch its directory.
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	log := logging.With("config")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			s, err := Load(abs)
			if err != nil {
				log.Warn("settings reload failed", "path", path, "err", err)
				continue
			}
			log.Info("settings reloaded", "path", path)
			fn(s)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				log.Warn("settings watcher overflow", "path", path)
				continue
			}
			return fmt.Errorf("config: watch: %w", err)
		}
	}
}
