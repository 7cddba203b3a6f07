package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

// FSNotifyBackend watches directory trees with inotify/kqueue/ReadDirectoryChangesW.
type FSNotifyBackend struct {
	dirs      []string
	filter    Filter
	ready     chan struct{}
	readyOnce sync.Once
}

// NewFSNotifyBackend returns a backend watching dirs recursively.
func NewFSNotifyBackend(dirs []string, filter Filter) *FSNotifyBackend {
	return &FSNotifyBackend{dirs: dirs, filter: filter, ready: make(chan struct{})}
}

func (b *FSNotifyBackend) Name() string { return "fsnotify" }

// Ready is closed once every watched directory is registered.
func (b *FSNotifyBackend) Ready() <-chan struct{} { return b.ready }

func (b *FSNotifyBackend) Run(ctx context.Context, emit func(Event)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	for _, dir := range b.dirs {
		if err := b.addDirsRecursive(w, dir, nil); err != nil {
			return err
		}
	}
	b.readyOnce.Do(func() { close(b.ready) })

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			b.handleEvent(w, ev, emit)
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(werr))
		}
	}
}

func (b *FSNotifyBackend) handleEvent(w *fsnotify.Watcher, ev fsnotify.Event, emit func(Event)) {
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if b.filter.SkipDir(ev.Name) {
				return
			}
			// Files may land in a new directory before it is registered.
			_ = b.addDirsRecursive(w, ev.Name, emit)
			return
		}
	}

	var op Op
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Rename):
		op = OpCreate
	case ev.Has(fsnotify.Write):
		op = OpModify
	default:
		return
	}
	if !b.filter.Match(ev.Name) {
		return
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	emit(Event{Path: ev.Name, Op: op})
}

// addDirsRecursive registers root and its subdirectories. When emit is set,
// matching files already present are reported as created.
func (b *FSNotifyBackend) addDirsRecursive(w *fsnotify.Watcher, root string, emit func(Event)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if b.filter.SkipDir(path) {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
			}
			return nil
		}
		if emit != nil && b.filter.Match(path) {
			emit(Event{Path: path, Op: OpCreate})
		}
		return nil
	})
}
