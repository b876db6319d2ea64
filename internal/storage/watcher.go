package storage

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// RemovedCallback is called with the file name of a photo that disappeared
// from the photo directory.
type RemovedCallback func(name string)

// Watch runs an fsnotify watcher on the photo directory until ctx is
// cancelled, calling cb for every photo that is removed or renamed away.
// Temporary upload files and non-photo files are ignored.
func Watch(ctx context.Context, root string, logger *slog.Logger, cb RemovedCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}
	logger.Info("photo watcher: started", slog.String("root", root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("photo watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !Allowed(name) {
				continue
			}
			logger.Debug("photo watcher: photo gone", slog.String("name", name), slog.String("op", ev.Op.String()))
			if cb != nil {
				cb(name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("photo watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
