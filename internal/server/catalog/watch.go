package catalog

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
)

const (
	rebuildOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

	// editors tend to emit several events per save
	settle = 100 * time.Millisecond
)

// Watch rebuilds the catalog whenever a document it was built from changes,
// until ctx is done. Each rebuild runs in a fresh session.
func Watch(ctx context.Context, h *Handler, build func() (*Catalog, error), log logr.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dirs := map[string]bool{}
	watch := func(c *Catalog) {
		for _, loc := range c.Locations() {
			dir := filepath.Dir(loc)
			if dirs[dir] {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				log.Error(err, "cannot watch directory", "dir", dir)
				continue
			}
			dirs[dir] = true
		}
	}
	watch(h.Catalog())

	debounce := time.NewTimer(settle)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&rebuildOps == 0 || !h.Catalog().Uses(event.Name) {
				continue
			}
			log.V(1).Info("document changed", "location", event.Name, "op", event.Op.String())
			debounce.Reset(settle)
		case <-debounce.C:
			log.Info("rebuilding catalog")
			c, err := build()
			if err != nil {
				log.Error(err, "catalog rebuilt with errors")
			}
			if c != nil {
				h.Swap(c)
				watch(c)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(err, "watch documents")
		}
	}
}
