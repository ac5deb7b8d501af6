package store

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDuration collapses the rapid write+rename sequence a store rewrite
// (or an editor save) produces into a single notification.
const debounceDuration = 500 * time.Millisecond

// Watcher reports modifications to a set of backing files. Because the store
// replaces its file via rename, the parent directories are watched and events
// are filtered down to the registered paths.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	done     chan struct{}
	watched  map[string]bool
	timers   map[string]*time.Timer
	onChange func(path string)
}

// Watch starts watching the given backing files. onChange is invoked from a
// background goroutine, debounced per path.
func Watch(paths []string, onChange func(path string)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fsWatcher,
		done:     make(chan struct{}),
		watched:  make(map[string]bool),
		timers:   make(map[string]*time.Timer),
		onChange: onChange,
	}

	dirs := make(map[string]bool)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		w.watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsWatcher.Add(dir); err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	// The loop gets its own reference: Stop nils w.watcher under the lock,
	// and the loop must keep draining until Close shuts the channels.
	go w.watchLoop(fsWatcher)
	return w, nil
}

// Stop stops the watcher. Pending debounced notifications are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher == nil {
		return
	}
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	w.watcher.Close()
	w.watcher = nil
	for _, timer := range w.timers {
		timer.Stop()
	}
}

func (w *Watcher) watchLoop(fsWatcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !w.watched[abs] {
				continue
			}
			w.scheduleNotify(abs)

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("ERROR: Backing file watcher error: %v", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) scheduleNotify(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.timers[path]; exists {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(debounceDuration, func() {
		select {
		case <-w.done:
			return
		default:
		}
		w.onChange(path)
	})
}
