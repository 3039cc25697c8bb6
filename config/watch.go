package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce collapses the burst of events editors emit for a single save.
const debounce = 200 * time.Millisecond

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	path    string
	fsw     *fsnotify.Watcher
	updates chan *Config
	done    chan struct{}
}

// Watch starts watching path. Each successfully loaded and validated version
// is delivered on Updates; files that fail to load are logged and skipped.
func Watch(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}
	// Watch the directory so editors that replace the file by rename are seen.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}

	w := &Watcher{
		path:    filepath.Clean(path),
		fsw:     fsw,
		updates: make(chan *Config, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Updates delivers reloaded configurations. Only the latest pending one is kept.
func (w *Watcher) Updates() <-chan *Config { return w.updates }

func (w *Watcher) run() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("config reload rejected", "path", w.path, "error", err)
		return
	}
	// Drop a stale pending update in favour of the newest.
	select {
	case <-w.updates:
	default:
	}
	w.updates <- cfg
	slog.Info("config reloaded", "path", w.path)
}

// Close stops watching.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}
