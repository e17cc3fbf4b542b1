package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a directory must stay quiet before a run starts
const DefaultSettle = 2 * time.Second

// Watch runs the coordinator whenever files appear in dir, for example
// when a watch is mounted. Events are debounced by settle. It blocks
// until ctx is done.
func Watch(ctx context.Context, dir string, c *Coordinator, settle time.Duration, log *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	log.Info("watching for files", "dir", dir)

	timer := time.NewTimer(settle)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
			log.Debug("change detected", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(settle)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "err", err)
		case <-timer.C:
			if _, err := c.Run(ctx); err != nil {
				if errors.Is(err, ErrImportInProgress) {
					timer.Reset(settle)
					continue
				}
				if ctx.Err() != nil {
					return nil
				}
				log.Error("import failed", "err", err)
			}
		}
	}
}
