// Package watcher forwards file system changes under a workspace to the
// indexer.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/albertocavalcante/cix/internal/cicode/discovery"
)

// Target receives the changes. *indexer.Indexer satisfies it.
type Target interface {
	RequestUpdate(path string)
	RemoveFile(path string)
	// Files lists the indexed files, so a vanished directory can be
	// purged.
	Files() []string
}

// Watcher watches every directory under a root and reports changes to
// source files.
type Watcher struct {
	mu sync.RWMutex

	// fsWatcher is the underlying file watcher.
	fsWatcher *fsnotify.Watcher

	// dirs is the set of directories being watched.
	dirs map[string]bool

	rootDir string
	finder  discovery.Finder
	target  Target

	// Events receives every forwarded change.
	Events chan WatchEvent

	// Errors receives watcher errors.
	Errors chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// WatchEvent is one forwarded change.
type WatchEvent struct {
	File string
	Op   fsnotify.Op
	// Removed is set when the change was forwarded as a removal.
	Removed bool
}

// NewWatcher starts watching rootDir and its subdirectories.
func NewWatcher(rootDir string, finder discovery.Finder, target Target) (*Watcher, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		dirs:      make(map[string]bool),
		rootDir:   absRoot,
		finder:    finder,
		target:    target,
		Events:    make(chan WatchEvent, 100),
		Errors:    make(chan error, 10),
		done:      make(chan struct{}),
	}
	if err := w.addTree(absRoot); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

// addTree watches dir and every non-hidden, non-excluded directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.rootDir && (strings.HasPrefix(d.Name(), ".") || w.excluded(path)) {
			return filepath.SkipDir
		}
		return w.addDir(path)
	})
}

func (w *Watcher) addDir(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirs[dir] {
		return nil
	}
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.dirs[dir] = true
	return nil
}

func (w *Watcher) excluded(path string) bool {
	rel, err := filepath.Rel(w.rootDir, path)
	if err != nil {
		return false
	}
	return w.finder.Excluded(filepath.ToSlash(rel))
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

// run processes filesystem events.
func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

// handleEvent forwards one fsnotify event. Creations of directories extend
// the watch; writes and creations of source files become updates; removals
// and renames become removals.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") || w.excluded(path) {
				return
			}
			if err := w.addTree(path); err != nil {
				w.sendError(err)
			}
			w.requestTree(path)
			return
		}
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if w.dropTree(path) {
			w.removeTree(path)
			return
		}
	}

	if !w.finder.IsSource(path) || w.excluded(path) {
		return
	}

	ev := WatchEvent{File: path, Op: event.Op}
	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		ev.Removed = true
		w.target.RemoveFile(path)
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		w.target.RequestUpdate(path)
	default:
		return
	}
	w.send(ev)
}

// dropTree forgets dir and every watched directory below it. It reports
// whether dir was being watched.
func (w *Watcher) dropTree(dir string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.dirs[dir] {
		return false
	}
	prefix := dir + string(filepath.Separator)
	for d := range w.dirs {
		if d == dir || strings.HasPrefix(d, prefix) {
			delete(w.dirs, d)
		}
	}
	return true
}

// removeTree removes every indexed file below a directory that was
// removed or renamed away. A renamed directory reappears through the
// Create event of its new name.
func (w *Watcher) removeTree(dir string) {
	prefix := dir + string(filepath.Separator)
	for _, f := range w.target.Files() {
		if !strings.HasPrefix(f, prefix) {
			continue
		}
		w.target.RemoveFile(f)
		w.send(WatchEvent{File: f, Op: fsnotify.Remove, Removed: true})
	}
}

// requestTree requests an update for the source files already present in
// a directory that appeared after watching began.
func (w *Watcher) requestTree(dir string) {
	files, err := w.finder.Find(dir)
	if err != nil {
		w.sendError(err)
		return
	}
	for _, f := range files {
		if w.excluded(f) {
			continue
		}
		w.target.RequestUpdate(f)
		w.send(WatchEvent{File: f, Op: fsnotify.Create})
	}
}

// send delivers ev unless the buffer is full; the target has already been
// told about the change.
func (w *Watcher) send(ev WatchEvent) {
	select {
	case w.Events <- ev:
	default:
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.Errors <- err:
	default:
	}
}

// WatchedDirs returns the directories being watched.
func (w *Watcher) WatchedDirs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var dirs []string
	for d := range w.dirs {
		dirs = append(dirs, d)
	}
	return dirs
}
