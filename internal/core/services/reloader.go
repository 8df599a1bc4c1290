package services

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
	"github.com/knowbase-labs/knowbase-cli/internal/logger"
)

// reloadDebounce gives the batch writer time to finish both index files
// before the reload fires.
const reloadDebounce = 2 * time.Second

// IndexReloader watches the persisted index files and reloads the
// in-memory index when a batch run rewrites them. This lets a long-lived
// chat session pick up new vectors without restarting.
type IndexReloader struct {
	index    driven.VectorIndex
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	pending *time.Timer
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewIndexReloader creates a reloader for the index pair at path.
func NewIndexReloader(index driven.VectorIndex, path string) *IndexReloader {
	return &IndexReloader{
		index:    index,
		path:     path,
		debounce: reloadDebounce,
		done:     make(chan struct{}),
	}
}

// Start begins watching the index directory. Events for unrelated files
// in the directory are ignored.
func (r *IndexReloader) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(r.path), err)
	}
	r.watcher = watcher

	r.wg.Add(1)
	go r.loop()
	logger.Debug("Index reloader watching %s", filepath.Dir(r.path))
	return nil
}

// Stop stops watching and waits for the loop to exit.
func (r *IndexReloader) Stop() {
	if r.watcher == nil {
		return
	}
	close(r.done)
	r.watcher.Close()
	r.wg.Wait()

	r.mu.Lock()
	if r.pending != nil {
		r.pending.Stop()
	}
	r.mu.Unlock()
}

func (r *IndexReloader) loop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !r.relevant(event) {
				continue
			}
			r.schedule()
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Index watcher error: %v", err)
		}
	}
}

// relevant reports whether the event touches one of the index pair files.
func (r *IndexReloader) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	return name == filepath.Base(r.path) || name == filepath.Base(r.path)+".meta"
}

// schedule arms the debounced reload, resetting any pending one.
func (r *IndexReloader) schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending != nil {
		r.pending.Stop()
	}
	r.pending = time.AfterFunc(r.debounce, r.reload)
}

func (r *IndexReloader) reload() {
	if err := r.index.Load(r.path); err != nil {
		logger.Warn("Index reload failed: %v", err)
		return
	}
	logger.Info("Index reloaded: %d vectors", r.index.Len())
}
