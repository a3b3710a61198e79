// Package watch triggers a vault rebuild after a quiet period following
// file changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 1500 * time.Millisecond

// Filter reports indexable files.
type Filter interface {
	Accepts(path string) bool
}

type Watcher struct {
	root     string
	filter   Filter
	hidden   func(name string) bool
	debounce time.Duration
	onChange func(ctx context.Context) error
}

func New(root string, filter Filter, hidden func(string) bool, debounce time.Duration, onChange func(context.Context) error) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if hidden == nil {
		hidden = func(string) bool { return false }
	}
	return &Watcher{
		root:     filepath.Clean(root),
		filter:   filter,
		hidden:   hidden,
		debounce: debounce,
		onChange: onChange,
	}
}

// Run blocks until ctx is done. Bursts of events collapse into one
// onChange call, and calls never overlap.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}
	slog.Info("vault_watch_started", "root", w.root, "debounce_ms", w.debounce.Milliseconds())

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(fsw, ev) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("vault_watch_error", "error", err)
		case <-timer.C:
			if err := w.onChange(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("vault_watch_rebuild_failed", "error", err)
			}
		}
	}
}

func (w *Watcher) relevant(fsw *fsnotify.Watcher, ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return false
	}
	if w.insideHidden(ev.Name) {
		return false
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(fsw, ev.Name); err != nil {
				slog.Warn("vault_watch_add_failed", "path", ev.Name, "error", err)
			}
			return true
		}
	}
	// A removed or renamed directory has no extension; rebuild anyway.
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		return filepath.Ext(ev.Name) == "" || w.filter.Accepts(ev.Name)
	}
	return w.filter.Accepts(ev.Name)
}

func (w *Watcher) insideHidden(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return true
	}
	for dir := rel; dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		if w.hidden(filepath.Base(dir)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.hidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
