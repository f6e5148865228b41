// Package watch re-runs a refresh whenever scene files under a drafts tree
// change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jmurray2011/quire/internal/logging"
	"github.com/jmurray2011/quire/internal/project"
)

// DefaultDebounce is how long the watcher waits for edits to settle.
const DefaultDebounce = 500 * time.Millisecond

// RefreshFunc is called once per settled batch of changes.
type RefreshFunc func(ctx context.Context) error

// Watcher watches Dir recursively and calls Refresh after scene edits.
type Watcher struct {
	Dir      string
	Debounce time.Duration
	Refresh  RefreshFunc
	Logger   logging.Logger

	// ready is called once every existing directory is being watched.
	ready func()
}

func (w *Watcher) log() logging.Logger {
	return logging.OrNop(w.Logger).WithField("component", "watch")
}

// Run blocks until ctx is canceled. Refresh errors are logged and do not
// stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Refresh == nil {
		return fmt.Errorf("watch: no refresh function")
	}
	info, err := os.Stat(w.Dir)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("failed to watch %s: not a directory", w.Dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := w.addTree(watcher, w.Dir); err != nil {
		return err
	}
	if w.ready != nil {
		w.ready()
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	log := w.log()
	log.Info("watching %s for changes", w.Dir)

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

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.handle(watcher, event) {
				continue
			}
			log.Debug("change detected: %s %s", event.Op, event.Name)
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.Refresh(ctx); err != nil {
				log.Error("refresh failed: %v", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error: %v", err)
		}
	}
}

// handle reports whether event should trigger a refresh. New directories are
// added to the watch list.
func (w *Watcher) handle(watcher *fsnotify.Watcher, event fsnotify.Event) bool {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(watcher, event.Name); err != nil {
				w.log().Warn("%v", err)
			}
			return true
		}
	}

	if !strings.EqualFold(filepath.Ext(event.Name), project.SceneExt) {
		return false
	}
	const changed = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	return event.Op&changed != 0
}

// addTree watches root and every directory below it, skipping hidden ones.
func (w *Watcher) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The directory may vanish between the event and the walk.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
