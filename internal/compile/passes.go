package compile

import (
	"strconv"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/config"
)

// PassKind identifies which external tool a pass runs.
type PassKind string

const (
	PassEngine       PassKind = "engine"
	PassBibliography PassKind = "bibliography"
)

// Pass is one step of a compilation sequence. Index is 1-based.
type Pass struct {
	Kind  PassKind
	Index int
	Total int
}

// Label renders "[2/4] bibliography" style progress labels.
func (p Pass) Label() string {
	return "[" + strconv.Itoa(p.Index) + "/" + strconv.Itoa(p.Total) + "] " + string(p.Kind)
}

// PassResult records a finished pass.
type PassResult struct {
	Pass
	Tool     string        `json:"tool"`
	Duration time.Duration `json:"duration"`
	ExitCode int           `json:"exit_code"`
	Output   string        `json:"-"`
}

// Plan returns the pass sequence for mode. Full runs engine, bibliography,
// engine, engine; with the bibliography disabled the engine runs three times.
// Clean uses the full sequence after emptying the output directory.
func Plan(mode config.BuildMode, bibliography bool) []Pass {
	var kinds []PassKind
	switch mode {
	case config.ModeQuick:
		kinds = []PassKind{PassEngine}
	default:
		if bibliography {
			kinds = []PassKind{PassEngine, PassBibliography, PassEngine, PassEngine}
		} else {
			kinds = []PassKind{PassEngine, PassEngine, PassEngine}
		}
	}
	passes := make([]Pass, len(kinds))
	for i, k := range kinds {
		passes[i] = Pass{Kind: k, Index: i + 1, Total: len(kinds)}
	}
	return passes
}
