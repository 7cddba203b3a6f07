package commands

import (
	"os"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	tberrors "git.home.luguber.info/inful/texbuilder/internal/errors"
	"git.home.luguber.info/inful/texbuilder/internal/workspace"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force    bool `help:"Overwrite an existing configuration file"`
	Scaffold bool `help:"Also create the content, config and assets directories"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	dir, err := projectRoot(root)
	if err != nil {
		return err
	}
	path := config.Resolve(dir, root.Config)
	if _, statErr := os.Stat(path); statErr == nil && !i.Force {
		return tberrors.ValidationError("configuration file already exists: " + path).
			WithRemediation("use --force to overwrite it")
	}
	if err := config.Init(path, i.Force); err != nil {
		return tberrors.FileSystemError("write config", path, err)
	}
	g.printf("Configuration written to %s\n", path)

	if !i.Scaffold {
		return nil
	}
	res, err := workspace.Scaffold(dir)
	if err != nil {
		return tberrors.FileSystemError("scaffold", dir, err)
	}
	for _, d := range res.Dirs {
		g.printf("  created %s/\n", d)
	}
	for _, f := range res.Files {
		g.printf("  created %s\n", f)
	}
	if len(res.Dirs)+len(res.Files) == 0 {
		g.printf("Project layout already complete\n")
	}
	return nil
}
