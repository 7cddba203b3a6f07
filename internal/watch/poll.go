package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

type fileStamp struct {
	mod  time.Time
	size int64
}

// PollBackend detects changes by comparing modification times on a fixed
// interval. It works on filesystems without change notification.
type PollBackend struct {
	dirs     []string
	filter   Filter
	interval time.Duration

	mu   sync.Mutex
	seen map[string]fileStamp
}

// NewPollBackend returns a backend scanning dirs every interval.
func NewPollBackend(dirs []string, filter Filter, interval time.Duration) *PollBackend {
	if interval <= 0 {
		interval = time.Second
	}
	return &PollBackend{dirs: dirs, filter: filter, interval: interval}
}

func (b *PollBackend) Name() string { return "poll" }

func (b *PollBackend) Run(ctx context.Context, emit func(Event)) error {
	// Baseline; existing files are not reported.
	b.scan(nil)

	s, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = s.NewJob(
		gocron.DurationJob(b.interval),
		gocron.NewTask(b.scan, emit),
		gocron.WithName("watch-poll"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return err
	}
	s.Start()
	slog.Debug("Polling for changes", logfields.Duration(b.interval), logfields.Count(len(b.dirs)))

	<-ctx.Done()
	if err := s.Shutdown(); err != nil {
		slog.Warn("Poll scheduler shutdown failed", logfields.Error(err))
	}
	return nil
}

// scan walks the watched trees once and emits created or modified files.
func (b *PollBackend) scan(emit func(Event)) {
	current := make(map[string]fileStamp)
	for _, root := range b.dirs {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if b.filter.SkipDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !b.filter.Match(path) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			current[path] = fileStamp{mod: info.ModTime(), size: info.Size()}
			return nil
		})
	}

	b.mu.Lock()
	prev := b.seen
	b.seen = current
	b.mu.Unlock()

	if emit == nil {
		return
	}
	for path, st := range current {
		old, ok := prev[path]
		switch {
		case !ok:
			emit(Event{Path: path, Op: OpCreate})
		case !old.mod.Equal(st.mod) || old.size != st.size:
			emit(Event{Path: path, Op: OpModify})
		}
	}
}
