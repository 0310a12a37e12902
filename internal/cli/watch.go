package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// watchDebounce is the quiet period after the last change before a watched
// file is read again.
const watchDebounce = 200 * time.Millisecond

// watchFile calls fn after the file at path changed, until ctx is done.
// Bursts of events are coalesced into a single call. The parent directory
// is watched so files replaced by editors are picked up too.
func watchFile(ctx context.Context, path string, logger *log.Logger, fn func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}
	logger.Debug("watching", "path", abs)

	go func() {
		defer w.Close()
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					fire = time.After(watchDebounce)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error", "path", abs, "err", err)
			case <-fire:
				fire = nil
				logger.Info("file changed, replaying", "path", path)
				fn()
			}
		}
	}()
	return nil
}
