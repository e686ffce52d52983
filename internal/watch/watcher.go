// Package watch observes the ingest directory and feeds batches of
// changed files into the pipeline. Events are coalesced: every event
// resets a quiet-period timer, and only when the directory has been
// calm for the full debounce window does the accumulated batch flush.
package watch

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pkvault/pkvault/internal/parser"
)

// Watcher is a debounced recursive directory watcher. The debounce is
// a two-state machine guarded by one mutex: idle (no timer) and
// pending (timer armed, paths accumulating). On fire the pending set
// is swapped out and cleared atomically, so events arriving during a
// flush start a fresh batch instead of being lost or duplicated.
type Watcher struct {
	dir      string
	debounce time.Duration
	flush    func(paths []string)

	watcher *fsnotify.Watcher
	done    chan struct{}

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer
}

// New returns a watcher over dir that calls flush with each coalesced
// batch of changed file paths.
func New(dir string, debounce time.Duration, flush func(paths []string)) *Watcher {
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		flush:    flush,
		done:     make(chan struct{}),
		pending:  map[string]bool{},
	}
}

// Start creates the ingest directory if needed and begins watching it
// and every subdirectory. Call Stop to release the watcher.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("watch: create %s: %w", w.dir, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	// fsnotify is not recursive; register the whole tree.
	err = filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch: register %s: %w", w.dir, err)
	}

	w.watcher = fsw
	go w.loop()
	log.Printf("watch: watching %s (debounce %s)", w.dir, w.debounce)
	return nil
}

// Stop shuts the watcher down and discards any pending batch.
func (w *Watcher) Stop() {
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
	<-w.done

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = map[string]bool{}
	w.mu.Unlock()
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(evt)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watch: error: %v", err)
		}
	}
}

func (w *Watcher) handle(evt fsnotify.Event) {
	if evt.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	// New subdirectories join the watch set.
	if evt.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(evt.Name); err != nil {
				log.Printf("watch: add %s: %v", evt.Name, err)
			}
			return
		}
	}

	if _, ok := parser.ForPath(evt.Name); !ok {
		return
	}
	w.add(evt.Name)
}

// add records the path and arms or re-arms the quiet-period timer.
func (w *Watcher) add(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = true
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.fire)
	} else {
		w.timer.Reset(w.debounce)
	}
}

// fire swaps the pending set out under the lock, then dispatches.
func (w *Watcher) fire() {
	w.mu.Lock()
	batch := w.pending
	w.pending = map[string]bool{}
	w.timer = nil
	w.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	paths := make([]string, 0, len(batch))
	for p := range batch {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	w.flush(paths)
}
