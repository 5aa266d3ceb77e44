// ABOUTME: Hot reload of the tool catalog override file using fsnotify.
// ABOUTME: Watches the parent directory so editor rename-and-replace saves are picked up.

package tools

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events a single save produces.
const reloadDebounce = 100 * time.Millisecond

// Watch reloads the catalog whenever its override file changes, until ctx is
// cancelled. Reload errors are logged and the previous contents stay active.
// It returns nil immediately when the catalog has no override file.
func (c *Catalog) Watch(ctx context.Context, onReload func()) error {
	path := c.Path()
	if path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tool catalog watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.After(reloadDebounce)
			}

		case <-pending:
			pending = nil
			if err := c.Reload(); err != nil {
				log.Printf("component=tools action=reload_failed path=%s err=%v", path, err)
				continue
			}
			log.Printf("component=tools action=reloaded path=%s tools=%d", path, c.Len())
			if onReload != nil {
				onReload()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("component=tools action=watch_error path=%s err=%v", path, err)
		}
	}
}
