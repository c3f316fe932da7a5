package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"dataworks/internal/logging"
)

// debounce window for editors that write config files in several events.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads the file at path whenever it changes and hands the fresh
// configuration to onReload. It blocks until ctx is done. The parent
// directory is watched rather than the file itself, since many editors
// replace files on save.
func Watch(ctx context.Context, path string, onReload func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}
	logging.Boot("watching %s for configuration changes", abs)

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

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
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			cfg, err := Load(abs)
			if err != nil {
				logging.BootDebug("config reload skipped: %v", err)
				continue
			}
			if err := cfg.Validate(); err != nil {
				logging.BootDebug("config reload skipped: %v", err)
				continue
			}
			logging.Boot("configuration reloaded from %s", abs)
			onReload(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.BootDebug("config watcher error: %v", err)
		}
	}
}
