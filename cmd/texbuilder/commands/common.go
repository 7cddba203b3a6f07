package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/texbuilder/internal/compile"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	tberrors "git.home.luguber.info/inful/texbuilder/internal/errors"
	"git.home.luguber.info/inful/texbuilder/internal/history"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
	"git.home.luguber.info/inful/texbuilder/internal/toolexec"
)

// Global carries process-wide dependencies into every command.
type Global struct {
	Logger *slog.Logger
	Ctx    context.Context
	Out    io.Writer // user-facing progress
	Runner toolexec.Runner
}

func (g *Global) context() context.Context {
	if g.Ctx == nil {
		return context.Background()
	}
	return g.Ctx
}

func (g *Global) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(g.Out, format, args...)
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file, relative to the project root" default:"texbuilder.yaml"`
	Project string           `short:"C" help:"Project root directory" default:"."`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Compile CompileCmd `cmd:"" help:"Compile the document"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild the document whenever sources change"`
	Check   CheckCmd   `cmd:"" help:"Check required tools and the project layout"`
	Clean   CleanCmd   `cmd:"" help:"Remove build intermediates and outputs"`
	Release ReleaseCmd `cmd:"" help:"Create and list document releases"`
	History HistoryCmd `cmd:"" help:"Show recent builds and releases"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	configureLogging(c.Verbose, config.LoggingConfig{})
	return nil
}

// configureLogging installs the default slog handler on stderr.
// Precedence: --verbose, then TEXBUILDER_LOG_LEVEL, then configuration.
func configureLogging(verbose bool, lc config.LoggingConfig) {
	opts := &slog.HandlerOptions{Level: parseLogLevel(verbose, lc.Level)}
	var h slog.Handler
	if lc.Format == config.LogFormatJSON {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func parseLogLevel(verbose bool, fallback config.LogLevel) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	raw := os.Getenv("TEXBUILDER_LOG_LEVEL")
	if raw == "" {
		raw = string(fallback)
	}
	switch config.NormalizeLogLevel(raw) {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// project is a loaded texbuilder project.
type project struct {
	Root        string
	ConfigPath  string
	ConfigFound bool
	Cfg         *config.Config
}

// projectRoot resolves --project to an existing absolute directory.
func projectRoot(cli *CLI) (string, error) {
	root, err := filepath.Abs(cli.Project)
	if err != nil {
		return "", tberrors.ValidationError("invalid project root: " + cli.Project)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", tberrors.ValidationError("project root is not a directory: " + root)
	}
	return root, nil
}

// loadProject resolves the root, loads .env files and the configuration.
// A missing default configuration file falls back to built-in defaults; an
// explicitly named file must exist.
func loadProject(cli *CLI) (*project, error) {
	root, err := projectRoot(cli)
	if err != nil {
		return nil, err
	}
	loaded, err := config.LoadEnvFiles(root)
	if err != nil {
		return nil, tberrors.ConfigInvalid(err)
	}
	for _, f := range loaded {
		slog.Debug("Loaded environment file", logfields.Path(f))
	}

	p := &project{Root: root, ConfigPath: config.Resolve(root, cli.Config)}
	if cli.Config == config.DefaultPath {
		p.Cfg, p.ConfigFound, err = config.LoadOrDefault(p.ConfigPath)
	} else {
		p.Cfg, err = config.Load(p.ConfigPath)
		p.ConfigFound = err == nil
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, tberrors.ConfigNotFound(p.ConfigPath)
		}
		return nil, tberrors.ConfigInvalid(err).WithContext("path", p.ConfigPath)
	}
	configureLogging(cli.Verbose, p.Cfg.Logging)
	if !p.ConfigFound {
		slog.Debug("No configuration file; using defaults", logfields.Path(p.ConfigPath))
	}
	return p, nil
}

// openHistory returns nil when history is disabled or unavailable.
func (p *project) openHistory() history.Store {
	if !p.Cfg.HistoryEnabled() {
		return nil
	}
	path := config.Resolve(p.Root, p.Cfg.History.Path)
	store, err := history.Open(path)
	if err != nil {
		slog.Warn("Build history unavailable", logfields.Path(path), logfields.Error(err))
		return nil
	}
	return store
}

func closeHistory(store history.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		slog.Warn("Failed to close history database", logfields.Error(err))
	}
}

// sequencer wires metrics, history and progress output into a Sequencer.
func (p *project) sequencer(g *Global, rec metrics.Recorder, store history.Store) *compile.Sequencer {
	opts := []compile.Option{compile.WithObserver(progressObserver{g: g})}
	if rec != nil {
		opts = append(opts, compile.WithRecorder(rec))
	}
	if store != nil {
		opts = append(opts, compile.WithObserver(history.NewBuildObserver(store)))
	}
	return compile.NewSequencer(g.Runner, compile.ToolchainFromConfig(p.Cfg), opts...)
}

// progressObserver prints one line per pass.
type progressObserver struct {
	compile.NoopObserver
	g *Global
}

func (o progressObserver) OnPassStart(_ string, pass compile.Pass) {
	o.g.printf("%s ...\n", pass.Label())
}

func (o progressObserver) OnPassComplete(_ string, res compile.PassResult, err error) {
	if err != nil {
		o.g.printf("%s failed after %s\n", res.Label(), res.Duration.Round(time.Millisecond))
		return
	}
	o.g.printf("%s done in %s\n", res.Label(), res.Duration.Round(time.Millisecond))
}

var errHistoryUnavailable = errors.New("history database unavailable; see the log for details")
