package watch

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/config"
)

// Op is the kind of change a backend observed.
type Op string

const (
	OpCreate Op = "create"
	OpModify Op = "modify"
)

// Event is one observed change to a file that passed the filter.
type Event struct {
	Path string
	Op   Op
}

// Backend delivers change events until ctx is canceled. Run returns nil on
// cancellation and an error only when watching cannot start.
type Backend interface {
	Run(ctx context.Context, emit func(Event)) error
	Name() string
}

// NewBackend returns the backend selected by kind.
func NewBackend(kind config.WatchBackend, dirs []string, filter Filter, pollInterval time.Duration) (Backend, error) {
	switch kind {
	case config.BackendFSNotify, "":
		return NewFSNotifyBackend(dirs, filter), nil
	case config.BackendPoll:
		return NewPollBackend(dirs, filter, pollInterval), nil
	default:
		return nil, fmt.Errorf("unknown watch backend %q", kind)
	}
}
