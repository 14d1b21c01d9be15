package core

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last event before
// reloading. Editors often write a file in several steps.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a Provider's default configuration file when it changes.
//
// It watches the parent directory rather than the file itself so that
// editors which save by renaming a temporary file are still seen.
type Watcher struct {
	provider *Provider
	watcher  *fsnotify.Watcher
	file     string
	debounce time.Duration

	mu      sync.Mutex
	pending time.Time
	reloads int

	done chan struct{}
}

// NewWatcher creates a watcher for p's default file.
func NewWatcher(p *Provider) (*Watcher, error) {
	if p.DefaultPath() == "" {
		return nil, fmt.Errorf("%w: no default config path to watch", ErrInvalidParams)
	}
	abs, err := filepath.Abs(p.DefaultPath())
	if err != nil {
		return nil, fmt.Errorf("resolve default config path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		provider: p,
		watcher:  fw,
		file:     abs,
		debounce: DefaultDebounce,
		done:     make(chan struct{}),
	}, nil
}

// Run processes events until ctx is cancelled, then closes the underlying
// watcher. It blocks; start it in a goroutine.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.done)
	defer w.watcher.Close()

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	log := w.provider.logger
	log.Info("watching default config", "path", w.file)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.file {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.mu.Lock()
			w.pending = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error("config watcher error", "error", err)

		case <-ticker.C:
			w.mu.Lock()
			due := !w.pending.IsZero() && time.Since(w.pending) >= w.debounce
			if due {
				w.pending = time.Time{}
			}
			w.mu.Unlock()

			if due {
				if err := w.provider.LoadDefault(); err != nil {
					log.Warn("default config reload failed, keeping previous", "error", err)
				}
				w.mu.Lock()
				w.reloads++
				w.mu.Unlock()
			}
		}
	}
}

// Done is closed when Run returns.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Reloads returns how many reloads have been attempted.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}
