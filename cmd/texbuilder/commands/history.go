package commands

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	tberrors "git.home.luguber.info/inful/texbuilder/internal/errors"
	"git.home.luguber.info/inful/texbuilder/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" default:"20" help:"Number of entries to show (0 for all)"`
	Kind  string `enum:"all,build,release" default:"all" help:"Entry kind (all, build, release)"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	if h.Limit < 0 {
		return tberrors.ValidationFailed("limit", "must not be negative")
	}
	p, err := loadProject(root)
	if err != nil {
		return err
	}
	if !p.Cfg.HistoryEnabled() {
		g.printf("Build history is disabled (history.enabled: false)\n")
		return nil
	}
	store := p.openHistory()
	if store == nil {
		return tberrors.FileSystemError("open history", p.Cfg.History.Path, errHistoryUnavailable)
	}
	defer closeHistory(store)

	opts := history.ListOptions{Limit: h.Limit}
	if h.Kind != "all" {
		opts.Kind = history.Kind(h.Kind)
	}
	entries, err := store.List(g.context(), opts)
	if err != nil {
		return tberrors.InternalError("list history", err)
	}
	if len(entries) == 0 {
		g.printf("No runs recorded yet\n")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(g.Out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"When", "Kind", "Mode", "Outcome", "Duration", "Detail"})
	for _, e := range entries {
		detail := e.Detail
		if detail == "" {
			detail = e.Artifact
		}
		t.AppendRow(table.Row{
			humanize.Time(e.StartedAt),
			e.Kind,
			e.Mode,
			e.Outcome,
			e.Duration.Round(time.Millisecond),
			truncate(detail, 60),
		})
	}
	t.Render()
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
