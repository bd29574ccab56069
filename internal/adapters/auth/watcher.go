package auth

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/evanschultz/todoboard/internal/domain"
)

// defaultDebounce batches bursts of writes to the session file.
const defaultDebounce = 100 * time.Millisecond

// Watcher streams the signed-in identity, re-reading the session file each
// time it changes on disk.
type Watcher struct {
	store    *SessionStore
	logger   *charmLog.Logger
	debounce time.Duration
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger used for watch and decode failures.
func WithWatcherLogger(logger *charmLog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce overrides the write-burst debounce window.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher constructs a watcher over store.
func NewWatcher(store *SessionStore, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		store:    store,
		logger:   charmLog.New(io.Discard),
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// SubscribeAuth emits the current identity immediately and again whenever
// the session file changes. nil means signed out. The channel closes and
// the file watch is released when ctx ends.
func (w *Watcher) SubscribeAuth(ctx context.Context) (<-chan *domain.User, error) {
	dir := filepath.Dir(w.store.Path())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// watch the parent directory so atomic renames are seen
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	current, err := w.store.Current()
	if err != nil {
		w.logger.Warn("session file unreadable; treating as signed out", "path", w.store.Path(), "err", err)
		current = nil
	}
	out := make(chan *domain.User, 1)
	out <- current

	go w.loop(ctx, fsw, out, current)
	return out, nil
}

// loop runs one subscription until ctx ends.
func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, out chan *domain.User, last *domain.User) {
	defer close(out)
	defer fsw.Close()

	debounce := time.NewTimer(0)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.store.Path() {
				continue
			}
			debounce.Reset(w.debounce)

		case <-debounce.C:
			next, err := w.store.Current()
			if err != nil {
				w.logger.Warn("session reload failed", "path", w.store.Path(), "err", err)
				continue
			}
			if sameUser(last, next) {
				continue
			}
			last = next
			offerLatest(out, next)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("session watcher error", "err", err)
		}
	}
}

// sameUser reports whether two auth states describe the same session.
func sameUser(a, b *domain.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && a.SignedInAt.Equal(b.SignedInAt)
}

// offerLatest replaces any unread identity with next.
func offerLatest(out chan *domain.User, next *domain.User) {
	select {
	case out <- next:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- next:
	default:
	}
}
