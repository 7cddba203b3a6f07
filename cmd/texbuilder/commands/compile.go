package commands

import (
	"log/slog"
	"runtime"

	"git.home.luguber.info/inful/texbuilder/internal/compile"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/toolexec"
)

// CompileCmd implements the 'compile' command.
type CompileCmd struct {
	Quick bool   `xor:"mode" help:"Single engine pass"`
	Clean bool   `xor:"mode" help:"Remove build outputs, then run the full sequence"`
	File  string `short:"f" help:"Entry document (overrides project.entry)"`
	Open  bool   `help:"Open the PDF after a successful build"`
}

func (c *CompileCmd) mode() config.BuildMode {
	switch {
	case c.Quick:
		return config.ModeQuick
	case c.Clean:
		return config.ModeClean
	default:
		return config.ModeFull
	}
}

func (c *CompileCmd) Run(g *Global, root *CLI) error {
	p, err := loadProject(root)
	if err != nil {
		return err
	}
	store := p.openHistory()
	defer closeHistory(store)

	opts := compile.OptionsFromConfig(p.Cfg, p.Root, c.mode())
	if c.File != "" {
		opts.Entry = c.File
	}

	res, err := p.sequencer(g, nil, store).Run(g.context(), opts)
	if err != nil {
		return err
	}
	g.printf("%s\n", res)
	printDiagnostics(g, res.Diagnostics)

	if c.Open {
		openArtifact(g, res.Artifact)
	}
	return nil
}

func printDiagnostics(g *Global, d *compile.Diagnostics) {
	if d == nil {
		return
	}
	if n := len(d.Warnings); n > 0 {
		g.printf("%d warnings in log\n", n)
	}
	if d.UndefinedCitations > 0 || d.UndefinedReferences > 0 {
		g.printf("Undefined citations: %d, undefined references: %d\n", d.UndefinedCitations, d.UndefinedReferences)
	}
	if d.RerunSuggested {
		g.printf("The engine suggests another run; use the full sequence to resolve references\n")
	}
}

// openArtifact launches the platform viewer. Failure is only reported.
func openArtifact(g *Global, path string) {
	cmd := toolexec.Command{Name: "xdg-open", Args: []string{path}}
	switch runtime.GOOS {
	case "darwin":
		cmd.Name = "open"
	case "windows":
		cmd = toolexec.Command{Name: "cmd", Args: []string{"/c", "start", "", path}}
	}
	if _, err := g.Runner.Run(g.context(), cmd); err != nil {
		slog.Warn("Could not open PDF", logfields.Path(path), logfields.Error(err))
	}
}
