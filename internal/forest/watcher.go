package forest

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/polarmutex/beancount-language-server/internal/debug"
)

var watcherLog = debug.Component("forest")

// Watcher monitors included-but-unopened files on disk so edits made
// outside the editor (another process, a VCS checkout switch) still
// invalidate the forest. It pairs an fsnotify.Watcher with callbacks,
// narrowed from "every source file under watched roots" to "only the
// specific files this server has actually loaded via include
// resolution", since a beancount workspace has no project-wide
// directory scan to drive from.
type Watcher struct {
	fsw *fsnotify.Watcher

	mu      sync.Mutex
	watched map[string]bool

	onChanged func(path string)
	onRemoved func(path string)
}

// NewWatcher creates a Watcher with the given change/removal
// callbacks. Either callback may be nil.
func NewWatcher(onChanged, onRemoved func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fsw: fsw, watched: make(map[string]bool), onChanged: onChanged, onRemoved: onRemoved}
	go w.run()
	return w, nil
}

// Watch begins watching path if it isn't already. Safe to call
// repeatedly with the same path.
func (w *Watcher) Watch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[path] {
		return
	}
	dir := filepath.Dir(path)
	if err := w.fsw.Add(dir); err != nil {
		watcherLog.Warn("failed to watch %s: %v", dir, err)
		return
	}
	w.watched[path] = true
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			watcherLog.Warn("watch error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	w.mu.Lock()
	interesting := w.watched[event.Name]
	w.mu.Unlock()
	if !interesting {
		return
	}

	switch {
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		if w.onChanged != nil {
			w.onChanged(event.Name)
		}
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if w.onRemoved != nil {
			w.onRemoved(event.Name)
		}
	}
}
