package commands

import (
	"path/filepath"

	"github.com/dustin/go-humanize"

	"git.home.luguber.info/inful/texbuilder/internal/clean"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	tberrors "git.home.luguber.info/inful/texbuilder/internal/errors"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	DryRun  bool `name:"dry-run" help:"List what would be removed"`
	KeepPDF bool `name:"keep-pdf" help:"Keep PDF files"`
}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	p, err := loadProject(root)
	if err != nil {
		return err
	}
	skip := append([]string(nil), p.Cfg.Watch.IgnoreDirs...)
	skip = append(skip, filepath.Base(p.Cfg.Project.DistDir), filepath.Base(p.Cfg.Project.StateDir))

	out := config.Resolve(p.Root, p.Cfg.Project.OutputDir)
	res, err := clean.Clean(clean.Options{
		OutputDir: out,
		Root:      p.Root,
		SkipDirs:  skip,
		KeepPDF:   c.KeepPDF,
		DryRun:    c.DryRun,
	})
	if err != nil {
		return tberrors.FileSystemError("clean", out, err)
	}

	verb := "Removed"
	if c.DryRun {
		verb = "Would remove"
		for _, f := range res.Files {
			g.printf("  %s\n", f)
		}
	}
	g.printf("%s %d files and %d directories (%s)\n", verb, len(res.Files), len(res.Dirs), humanize.Bytes(uint64(res.Bytes)))
	return nil
}
