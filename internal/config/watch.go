package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 200 * time.Millisecond

// FileWatcher re-reads the TOML config whenever it changes on disk and pushes
// the result through SettingsStore.UpdateConfig, which fires the hot-reload
// callbacks.
type FileWatcher struct {
	logger   *slog.Logger
	path     string
	store    *SettingsStore
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// NewFileWatcher watches the directory holding path, since editors often
// replace files instead of writing them in place.
func NewFileWatcher(logger *slog.Logger, path string, store *SettingsStore) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &FileWatcher{
		logger:   logger,
		path:     abs,
		store:    store,
		debounce: defaultDebounce,
		watcher:  w,
	}, nil
}

// Run processes events until ctx is cancelled, then closes the watcher.
func (fw *FileWatcher) Run(ctx context.Context) error {
	defer fw.watcher.Close()

	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce bursts of writes from a single save.
			reload = time.After(fw.debounce)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			fw.logger.Error("config watcher error", "error", err)

		case <-reload:
			reload = nil
			fw.reload(ctx)
		}
	}
}

func (fw *FileWatcher) reload(ctx context.Context) {
	cfg, found, err := Resolve(fw.path)
	if err != nil {
		fw.logger.Error("config reload failed", "path", fw.path, "error", err)
		return
	}
	if !found {
		fw.logger.Warn("config file removed, keeping current settings", "path", fw.path)
		return
	}
	if err := fw.store.UpdateConfig(ctx, cfg); err != nil {
		fw.logger.Error("config reload rejected", "path", fw.path, "error", err)
		return
	}
	fw.logger.Info("config reloaded", "path", fw.path)
}
