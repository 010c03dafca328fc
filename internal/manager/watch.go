package manager

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch runs the pipeline now, then on every interval tick and after every
// edit of the requests file, until ctx is done. Failed runs are logged and
// the loop keeps going.
func (m *Manager) Watch(ctx context.Context, interval time.Duration, opts RunOptions) error {
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", interval)
	}

	path, err := filepath.Abs(m.cfg.Requests.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve requests path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	// last is what the run itself wrote, so its own rewrite does not
	// re-trigger a run while edits saved during a run still do.
	var last []byte
	run := func(reason string) {
		m.logger.Info("starting run", zap.String("reason", reason))
		if _, err := m.Run(ctx, opts); err != nil && ctx.Err() == nil {
			m.logger.Error("run failed", zap.Error(err))
		}
		last = m.lastWritten()
	}

	run("startup")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			run("interval")

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			debounce = time.After(m.watchDebounce)

		case <-debounce:
			debounce = nil
			data, err := os.ReadFile(path)
			if err != nil {
				m.logger.Warn("failed to read requests file", zap.String("path", path), zap.Error(err))
				continue
			}
			if bytes.Equal(data, last) {
				continue
			}
			run("requests file changed")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("watcher error", zap.Error(err))
		}
	}
}
