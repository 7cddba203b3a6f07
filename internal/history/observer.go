package history

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/compile"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

// BuildObserver records every finished sequencer run in the store.
type BuildObserver struct {
	compile.NoopObserver
	store Store
}

// NewBuildObserver returns a compile.Observer backed by store.
func NewBuildObserver(store Store) *BuildObserver {
	return &BuildObserver{store: store}
}

func (o *BuildObserver) OnRunComplete(res *compile.Result, err error) {
	e := Entry{
		RunID:     res.RunID,
		Kind:      KindBuild,
		Mode:      string(res.Mode),
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
		Outcome:   string(compile.OutcomeOf(err)),
		Artifact:  res.Artifact,
	}
	if err != nil {
		e.Detail = err.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if rerr := o.store.Record(ctx, e); rerr != nil {
		slog.Warn("Failed to record build history", logfields.RunID(res.RunID), logfields.Error(rerr))
	}
}
