package datasource

import (
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a burst of writes must settle before a change
// is reported.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports edits to a single file, such as the tag library.
type Watcher struct {
	fs       *fsnotify.Watcher
	name     string
	debounce time.Duration
	logger   *log.Logger
	changes  chan struct{}
	done     chan struct{}
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the settle time. Zero reports every event.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sends fsnotify errors to l.
func WithLogger(l *log.Logger) WatchOption {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher watches the directory holding path, so the file may be created
// later or replaced by rename on save.
func NewWatcher(path string, opts ...WatchOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		fs:       fw,
		name:     filepath.Base(path),
		debounce: DefaultDebounce,
		logger:   log.New(io.Discard, "", 0),
		changes:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	go w.loop()
	return w, nil
}

// Changes delivers at most one pending signal; several edits made before it
// is read collapse into one.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fs.Close()
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != w.name {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) signal() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}

func (w *Watcher) loop() {
	settle := time.NewTimer(time.Hour)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if w.debounce <= 0 {
				w.signal()
				continue
			}
			settle.Reset(w.debounce)
		case <-settle.C:
			w.signal()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Printf("watch %s: %v", w.name, err)
		}
	}
}
