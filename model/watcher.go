package model

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/liamcoop/costpredictor/internal/logger"
)

// DefaultDebounce coalesces the burst of events an editor or copy produces.
const DefaultDebounce = 500 * time.Millisecond

// Watch reloads the model whenever the artifact file changes, until ctx is
// done. The parent directory is watched so that atomic rename-into-place
// deployments are seen.
func (h *Holder) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	target, err := filepath.Abs(h.path)
	if err != nil {
		return fmt.Errorf("failed to resolve model path %s: %w", h.path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}
	logger.Info("Watching model artifact for changes", "path", target)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("Model artifact changed", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Model watcher error", "error", err)

		case <-fire:
			fire = nil
			previous := h.Current()
			m, err := h.Load()
			if err != nil {
				logger.Error("Model reload failed, keeping previous model", "path", target, "error", err)
				continue
			}
			attrs := []any{"name", m.Name(), "instance", m.Instance().String()}
			if previous != nil {
				attrs = append(attrs, "replaced", previous.Instance().String())
			}
			logger.Info("Model reloaded", attrs...)
		}
	}
}
