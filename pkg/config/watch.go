package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watch reloads the global configuration whenever the config file is
// written, created or renamed into place, and passes each successfully
// reloaded config to onChange. The directory is watched rather than the file
// so editors that replace the file atomically are picked up. Watch blocks
// until ctx is done.
func Watch(ctx context.Context, onChange func(*Config)) error {
	path := Get().ConfigFilePath()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

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

			cfg, err := Reload()
			if err != nil {
				log.WithError(err).WithField("file", path).Warn("config reload failed, keeping previous configuration")
				continue
			}
			if err := cfg.Validate(); err != nil {
				log.WithError(err).WithField("file", path).Warn("reloaded configuration is invalid")
				continue
			}
			log.WithField("file", path).Info("configuration reloaded")
			if onChange != nil {
				onChange(cfg)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("config watcher error")
		case <-ctx.Done():
			return nil
		}
	}
}
