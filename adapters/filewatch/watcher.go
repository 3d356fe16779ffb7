// Package filewatch reloads a workspace file when it changes on disk.
package filewatch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"phaengine/internal"
)

// ReloadFunc is called with the watched path once writes have settled.
type ReloadFunc func(path string) error

// Watcher watches one file. Editors often replace a file instead of
// writing it in place, so the parent directory is watched and events are
// filtered by name.
type Watcher struct {
	fs       *fsnotify.Watcher
	path     string
	debounce time.Duration
	reload   ReloadFunc
	log      *internal.Logger
}

// New starts watching path. Events are coalesced until debounce has passed
// without another change.
func New(path string, debounce time.Duration, reload ReloadFunc, log *internal.Logger) (*Watcher, error) {
	if log == nil {
		log = internal.NewDefaultLogger()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{fs: fsw, path: abs, debounce: debounce, reload: reload, log: log}, nil
}

// Run processes events until ctx is done. It closes the underlying watcher
// on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	w.log.Info("watching %s", w.path)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.reload(w.path); err != nil {
				// keep serving the previous workspace
				w.log.Warn("reload %s failed: %v", w.path, err)
				continue
			}
			w.log.Info("reloaded %s", w.path)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error: %v", err)
		}
	}
}
