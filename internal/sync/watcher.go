package sync

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/arclist/arclist/internal/store"
)

// startWatcher watches the state directory and schedules pushes for
// collection files touched by another process (e.g. the CLI while the
// daemon runs). Session and temp files are ignored, as are unknown or
// old-version cache keys.
func (e *Engine) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(e.store.Dir()); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", e.store.Dir(), err)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer watcher.Close()

		for {
			select {
			case <-e.ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
					continue
				}
				c, ok := store.CollectionForKey(filepath.Base(event.Name))
				if !ok {
					continue
				}
				e.Schedule(c)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				e.config.Logger.Printf("WARNING: watcher error: %v", err)
			}
		}
	}()

	e.config.Logger.Printf("Watching %s", e.store.Dir())
	return nil
}
