// Package watch delivers debounced filesystem change notifications for
// watch-mode syncs.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rjeczalik/notify"
)

const (
	eventBufferSize = 64
	defaultDebounce = 50 * time.Millisecond
)

// FilterFunc drops an event when it returns true. Paths arrive in the
// OS-native absolute form notify reports.
type FilterFunc func(path string) bool

// Watcher watches a directory tree recursively and forwards change
// events, debounced per path. Editors and inotify both like to emit
// bursts of writes for a single logical change; the debounce collapses
// each burst into one event at the cost of a small added latency.
type Watcher struct {
	dir      string
	raw      chan notify.EventInfo
	events   chan notify.EventInfo
	debounce time.Duration
	done     chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	filter  FilterFunc
	pending map[string]notify.EventInfo
	timers  map[string]*time.Timer
}

func New(dir string) *Watcher {
	return &Watcher{
		dir:      dir,
		debounce: defaultDebounce,
		done:     make(chan struct{}),
		pending:  make(map[string]notify.EventInfo),
		timers:   make(map[string]*time.Timer),
	}
}

// SetDebounce overrides the per-path debounce window.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Filter installs a callback that can drop raw events before debouncing.
func (w *Watcher) Filter(f FilterFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.filter = f
}

// Start begins watching. Events flow until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	slog.Info("watcher start", "dir", w.dir)

	w.raw = make(chan notify.EventInfo, eventBufferSize)
	w.events = make(chan notify.EventInfo, eventBufferSize)

	if err := notify.Watch(w.dir+"/...", w.raw, notify.All); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop ends watching and closes the events channel.
func (w *Watcher) Stop() {
	close(w.done)
	if w.raw != nil {
		notify.Stop(w.raw)
	}
	w.wg.Wait()
	slog.Info("watcher stopped")
}

// Events is the debounced event stream.
func (w *Watcher) Events() <-chan notify.EventInfo {
	return w.events
}

func (w *Watcher) loop(ctx context.Context) {
	defer func() {
		w.mu.Lock()
		for _, timer := range w.timers {
			timer.Stop()
		}
		w.mu.Unlock()
		w.wg.Done()
		close(w.events)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.raw:
			if !ok {
				return
			}
			w.mu.Lock()
			drop := w.filter != nil && w.filter(event.Path())
			w.mu.Unlock()
			if drop {
				continue
			}
			w.debounceEvent(event)
		}
	}
}

func (w *Watcher) debounceEvent(event notify.EventInfo) {
	path := event.Path()

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.pending[path] = event
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.flush(path)
	})
}

func (w *Watcher) flush(path string) {
	w.mu.Lock()
	event, ok := w.pending[path]
	if !ok {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	delete(w.timers, path)
	w.mu.Unlock()

	select {
	case w.events <- event:
	default:
		slog.Warn("watcher channel full, dropping event", "path", path)
	}
}
