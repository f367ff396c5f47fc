package server

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloader watches the root directory and notifies connected SSE clients
// after a quiet period, so a rebuild that touches many files fires once.
type reloader struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu       sync.Mutex
	clients  map[chan struct{}]struct{}
	timer    *time.Timer
	done     chan struct{}
	doneOnce sync.Once

	wg sync.WaitGroup
}

func newReloader(dir string, debounce time.Duration) (*reloader, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	r := &reloader{
		watcher:  w,
		debounce: debounce,
		clients:  make(map[chan struct{}]struct{}),
		done:     make(chan struct{}),
	}
	if err := r.addTree(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	return r, nil
}

// addTree watches dir and every non-hidden directory below it.
func (r *reloader) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return r.watcher.Add(path)
	})
}

func (r *reloader) start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case event, ok := <-r.watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Chmod != 0 {
					continue
				}
				if event.Op&fsnotify.Create != 0 {
					if err := r.addTree(event.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
						slog.Warn("Failed to watch new directory", "path", event.Name, "error", err)
					}
				}
				r.schedule()

			case err, ok := <-r.watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Watcher error", "error", err)
			}
		}
	}()
}

func (r *reloader) schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Reset(r.debounce)
		return
	}
	r.timer = time.AfterFunc(r.debounce, r.broadcast)
}

func (r *reloader) subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	r.mu.Lock()
	r.clients[ch] = struct{}{}
	r.mu.Unlock()
	return ch
}

func (r *reloader) unsubscribe(ch chan struct{}) {
	r.mu.Lock()
	delete(r.clients, ch)
	r.mu.Unlock()
}

func (r *reloader) broadcast() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.clients {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// disconnect ends every open event stream. Registered as an http.Server
// shutdown hook because Shutdown does not cancel active requests.
func (r *reloader) disconnect() {
	r.doneOnce.Do(func() { close(r.done) })
}

func (r *reloader) close() {
	r.disconnect()
	if r.watcher != nil {
		if err := r.watcher.Close(); err != nil {
			slog.Warn("Failed to close file watcher", "error", err)
		}
	}
	r.wg.Wait()

	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.mu.Unlock()
}
