package inbound

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rjeczalik/notify"
)

const (
	eventBufferSize = 64
	// Device sync tools write note files in bursts of partial writes; a flush
	// only fires once a path has been quiet for this long.
	defaultDebounceTimeout = 500 * time.Millisecond
)

// Watcher watches the note directory recursively and emits debounced note
// paths. Non-note files are dropped before debouncing.
type Watcher struct {
	watchDir  string
	events    chan string
	rawEvents chan notify.EventInfo
	done      chan struct{}
	wg        sync.WaitGroup

	pending         map[string]*time.Timer
	debounceMu      sync.Mutex
	debounceTimeout time.Duration
}

func NewWatcher(watchDir string) *Watcher {
	return &Watcher{
		watchDir:        watchDir,
		done:            make(chan struct{}),
		pending:         make(map[string]*time.Timer),
		debounceTimeout: defaultDebounceTimeout,
	}
}

// SetDebounceTimeout sets the quiet period before a path is emitted.
func (w *Watcher) SetDebounceTimeout(timeout time.Duration) {
	w.debounceTimeout = timeout
}

func (w *Watcher) Start(ctx context.Context) error {
	slog.Debug("note watcher start", "dir", w.watchDir)

	w.rawEvents = make(chan notify.EventInfo, eventBufferSize)
	w.events = make(chan string, eventBufferSize)

	recursivePath := w.watchDir + "/..."
	if err := notify.Watch(recursivePath, w.rawEvents, notify.Write|notify.Create|notify.Rename); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.filterEvents(ctx)

	return nil
}

func (w *Watcher) Stop() {
	close(w.done)
	if w.rawEvents != nil {
		notify.Stop(w.rawEvents)
	}
	w.wg.Wait()
	slog.Debug("note watcher stopped")
}

func (w *Watcher) Events() <-chan string {
	return w.events
}

func (w *Watcher) filterEvents(ctx context.Context) {
	defer func() {
		w.debounceMu.Lock()
		for _, timer := range w.pending {
			timer.Stop()
		}
		w.debounceMu.Unlock()

		w.wg.Done()
		close(w.events)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.rawEvents:
			if !ok {
				return
			}
			path := event.Path()
			if !strings.HasSuffix(path, noteSuffix) {
				continue
			}
			w.debounce(path)
		}
	}
}

func (w *Watcher) debounce(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, exists := w.pending[path]; exists {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounceTimeout, func() {
		w.flush(path)
	})
}

func (w *Watcher) flush(path string) {
	w.debounceMu.Lock()
	if _, exists := w.pending[path]; !exists {
		w.debounceMu.Unlock()
		return
	}
	delete(w.pending, path)
	w.debounceMu.Unlock()

	select {
	case w.events <- path:
		slog.Debug("note changed", "path", path)
	default:
		slog.Warn("note watcher dropped event", "reason", "channel full", "path", path)
	}
}
