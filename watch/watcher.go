package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a directory tree and invokes a callback once changes have
// settled for the debounce interval.
type Watcher struct {
	root     string
	debounce time.Duration
	onChange func(ctx context.Context) error
	logger   *slog.Logger
	notify   *fsnotify.Watcher
	exclude  []string
}

// Option customizes a Watcher.
type Option func(*Watcher) error

// WithExclude skips the given directories and everything below them. Build
// output directories inside the watched tree belong here.
func WithExclude(dirs ...string) Option {
	return func(w *Watcher) error {
		for _, dir := range dirs {
			if dir == "" {
				continue
			}
			abs, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", dir, err)
			}
			w.exclude = append(w.exclude, abs)
		}
		return nil
	}
}

// New watches root and every directory below it. A non-positive debounce
// falls back to 500ms.
func New(root string, debounce time.Duration, onChange func(ctx context.Context) error, logger *slog.Logger, opts ...Option) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watch: missing change callback")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{
		root:     abs,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		notify:   notify,
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			_ = notify.Close()
			return nil, err
		}
	}
	if err := w.addRecursive(abs); err != nil {
		_ = notify.Close()
		return nil, err
	}
	return w, nil
}

// Run dispatches events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.notify.Close()
	w.logger.Info("watching", "dir", w.root, "debounce", w.debounce)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.notify.Events:
			if !ok {
				return
			}
			if !w.handle(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.notify.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch", "error", err)
		case <-fire:
			fire = nil
			w.execute(ctx)
		}
	}
}

func (w *Watcher) execute(ctx context.Context) {
	start := time.Now()
	if err := w.onChange(ctx); err != nil {
		w.logger.Warn("watch reload", "dir", w.root, "error", err)
		return
	}
	w.logger.Debug("watch reload", "dir", w.root, "duration", time.Since(start))
}

// handle reports whether ev should schedule a callback. Newly created
// directories are added to the watch set.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if ignored(ev.Name) || w.excluded(ev.Name) {
		return false
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.logger.Warn("watch add", "dir", ev.Name, "error", err)
			}
		}
	}
	if ev.Op == fsnotify.Chmod {
		return false
	}
	w.logger.Debug("change", "path", ev.Name, "op", ev.Op.String())
	return true
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && ignored(p) || w.excluded(p) {
			return filepath.SkipDir
		}
		if err := w.notify.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

func ignored(p string) bool {
	base := filepath.Base(p)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || base == "node_modules"
}

func (w *Watcher) excluded(p string) bool {
	for _, dir := range w.exclude {
		if p == dir || strings.HasPrefix(p, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
