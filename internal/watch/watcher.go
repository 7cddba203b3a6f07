// Package watch rebuilds the document when source files change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	tberrors "git.home.luguber.info/inful/texbuilder/internal/errors"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
)

// Options configures a Watcher.
type Options struct {
	Dirs         []string
	Filter       Filter
	Debounce     time.Duration
	Backend      config.WatchBackend
	PollInterval time.Duration
	// SkipInitialBuild suppresses the build normally run at startup.
	SkipInitialBuild bool
}

// OptionsFromConfig derives watcher options from cfg, resolving
// directories against root.
func OptionsFromConfig(cfg *config.Config, root string) Options {
	dirs := make([]string, 0, len(cfg.Watch.Dirs))
	for _, d := range cfg.Watch.Dirs {
		dirs = append(dirs, filepath.Clean(config.Resolve(root, d)))
	}
	return Options{
		Dirs: dirs,
		Filter: Filter{
			Extensions: cfg.Watch.Extensions,
			IgnoreDirs: cfg.Watch.IgnoreDirs,
			Roots:      dirs,
		},
		Debounce:     cfg.DebounceDelay(),
		Backend:      cfg.Watch.Backend,
		PollInterval: cfg.PollInterval(),
	}
}

// Watcher debounces file changes into coalesced builds.
type Watcher struct {
	opts     Options
	build    BuildFunc
	recorder metrics.Recorder
	backend  Backend
}

// New validates opts and returns a Watcher. Every directory must exist.
func New(opts Options, build BuildFunc, rec metrics.Recorder) (*Watcher, error) {
	if len(opts.Dirs) == 0 {
		return nil, tberrors.ValidationError("no directories to watch")
	}
	for _, dir := range opts.Dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, tberrors.FileSystemError("watch", dir, err)
		}
		if !info.IsDir() {
			return nil, tberrors.FileSystemError("watch", dir, fmt.Errorf("not a directory"))
		}
	}
	if opts.Debounce <= 0 {
		return nil, tberrors.ValidationFailed("debounce", "must be positive")
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if len(opts.Filter.Roots) == 0 {
		opts.Filter.Roots = opts.Dirs
	}
	backend, err := NewBackend(opts.Backend, opts.Dirs, opts.Filter, opts.PollInterval)
	if err != nil {
		return nil, tberrors.ValidationFailed("backend", err.Error())
	}
	return &Watcher{opts: opts, build: build, recorder: rec, backend: backend}, nil
}

// Backend returns the change source in use.
func (w *Watcher) Backend() Backend { return w.backend }

// Run watches until ctx is canceled and returns nil in that case. Build
// failures are logged and never stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	coalescer := NewCoalescer(w.build, w.recorder)
	debouncer := NewDebouncer(w.opts.Debounce, coalescer.Request)
	defer debouncer.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return coalescer.Run(gctx) })

	if !w.opts.SkipInitialBuild {
		coalescer.Request()
	}

	slog.Info("Watching for changes",
		slog.Any("dirs", w.opts.Dirs),
		slog.String("backend", w.backend.Name()),
		logfields.Duration(w.opts.Debounce))

	g.Go(func() error {
		err := w.backend.Run(gctx, func(ev Event) {
			w.recorder.IncWatchEvent()
			slog.Debug("Change queued", logfields.Path(ev.Path), slog.String("op", string(ev.Op)))
			debouncer.Trigger()
		})
		if err != nil {
			return tberrors.FileSystemError("watch", strings.Join(w.opts.Dirs, ","), err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Watcher stopped")
	return nil
}
