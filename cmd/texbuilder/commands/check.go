package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	tberrors "git.home.luguber.info/inful/texbuilder/internal/errors"
	"git.home.luguber.info/inful/texbuilder/internal/probe"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Report    string `type:"path" help:"Write the report as JSON to this file"`
	ToolsOnly bool   `name:"tools-only" help:"Skip the project layout check"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	p, err := loadProject(root)
	if err != nil {
		return err
	}

	report := probe.New(g.Runner).Probe(g.context(), probe.DefaultRequirements(p.Cfg, probe.PurposeCheck))
	renderTools(g, report.Results)

	if !c.ToolsOnly {
		layout, lerr := probe.CheckLayout(p.Root, probe.DefaultLayout(p.Cfg.Project.Entry, p.Cfg.Watch.IgnoreDirs))
		if lerr != nil {
			return tberrors.FileSystemError("check layout", p.Root, lerr)
		}
		report.Layout = layout
		renderLayout(g, layout)
	}

	if c.Report != "" {
		if err := writeReport(c.Report, report); err != nil {
			return err
		}
		g.printf("Report written to %s\n", c.Report)
	}

	if missing := report.Unsatisfied(); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		hints := make([]string, 0, len(missing))
		for _, r := range missing {
			names = append(names, fmt.Sprintf("%s (%s)", r.Tool, r.Status))
			hints = append(hints, r.Tool+": "+r.Remediation)
		}
		return tberrors.EnvironmentUnsatisfied("required tools unavailable: "+strings.Join(names, ", "),
			strings.Join(hints, "\n"))
	}
	if report.Layout != nil && !report.Layout.Satisfied() {
		return tberrors.ValidationError("project layout incomplete").
			WithRemediation("run 'texbuilder init --scaffold' to create the standard layout")
	}
	g.printf("All required dependencies satisfied\n")
	return nil
}

func renderTools(g *Global, results []probe.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(g.Out)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Tools")
	t.AppendHeader(table.Row{"Tool", "Required", "Status", "Version", "Minimum", "Path"})
	for _, r := range results {
		t.AppendRow(table.Row{r.Tool, yesNo(r.Required), r.Status, r.Version, r.MinVersion, r.Path})
	}
	t.Render()
}

func renderLayout(g *Global, layout *probe.LayoutReport) {
	t := table.NewWriter()
	t.SetOutputMirror(g.Out)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Project layout")
	t.AppendHeader(table.Row{"Path", "Kind", "Required", "Present", "Description"})
	for _, it := range layout.Items {
		path := it.Path
		if it.Match != "" {
			path = it.Match
		}
		t.AppendRow(table.Row{path, it.Kind, yesNo(it.Required), yesNo(it.Present), it.Description})
	}
	t.Render()

	if len(layout.Bibliography) == 0 {
		return
	}
	b := table.NewWriter()
	b.SetOutputMirror(g.Out)
	b.SetStyle(table.StyleLight)
	b.SetTitle("Bibliography")
	b.AppendHeader(table.Row{"File", "Entries", "Problem"})
	for _, r := range layout.Bibliography {
		b.AppendRow(table.Row{r.Path, r.Entries, r.Problem})
	}
	b.Render()
}

func writeReport(path string, report probe.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return tberrors.InternalError("encode report", err)
	}
	// #nosec G306 -- the report holds tool paths and versions only
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return tberrors.FileSystemError("write report", path, err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
