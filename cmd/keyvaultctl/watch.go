package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/doodlesbykumbi/keyvault/pkg/config"
	"github.com/doodlesbykumbi/keyvault/pkg/logging"
)

// watchConfig reloads and validates the configuration file whenever it is
// written, replaced or created, until ctx is done. The running server keeps
// the settings it started with; changed attributes are reported so an
// operator can restart to apply them.
func watchConfig(ctx context.Context, path string, logger logging.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors replace the file, so the directory is watched.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	logger.Info(ctx, "watching configuration file", "path", path)

	current := attributeValues(config.Get())
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if err := config.Reload(); err != nil {
				logger.Warn(ctx, "configuration reload rejected", "path", path, "error", err)
				continue
			}
			next := attributeValues(config.Get())
			for name, value := range next {
				if current[name] != value {
					logger.Info(ctx, "configuration changed; restart to apply", "attribute", name, "value", value)
				}
			}
			current = next
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn(ctx, "configuration watcher error", "error", err)
		case <-ctx.Done():
			return nil
		}
	}
}

func attributeValues(cfg *config.KeyvaultConfig) map[string]string {
	values := make(map[string]string)
	for _, attr := range cfg.Attributes() {
		values[attr.Name] = attr.Value
	}
	return values
}
