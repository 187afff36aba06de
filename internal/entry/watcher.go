package entry

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the database file for writes made by external processes
// (hand edits, sync tools) and re-broadcasts the store's change
// notification so the cache is invalidated even when the mutation did not
// go through this process.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	stop     chan struct{}
	settle   time.Duration
	lastFire time.Time
}

// NewWatcher creates a watcher bound to the store's database file.
func NewWatcher(store *Store) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("initialize filesystem watcher: %w", err)
	}
	// Watch the directory: SQLite rewrites via WAL produce events on
	// sibling files, and some editors replace the file wholesale.
	if err := fsw.Add(filepath.Dir(store.Path())); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch store directory: %w", err)
	}
	return &Watcher{
		store:   store,
		watcher: fsw,
		stop:    make(chan struct{}),
		settle:  250 * time.Millisecond,
	}, nil
}

// Start begins processing filesystem events in a background goroutine.
func (w *Watcher) Start(ctx context.Context) {
	go w.processEvents(ctx)
}

// Stop stops the watcher and releases its resources.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		return
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	base := filepath.Base(w.store.Path())
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if name != base && name != base+"-wal" {
				continue
			}
			// Bursts of WAL writes collapse into one reload.
			if time.Since(w.lastFire) < w.settle {
				continue
			}
			w.lastFire = time.Now()
			w.store.notify()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("store watcher error: %v", err)
		}
	}
}
