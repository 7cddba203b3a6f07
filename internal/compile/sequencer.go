// Package compile sequences typesetting engine and bibliography passes
// into quick, full and clean builds.
package compile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/texbuilder/internal/clean"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	tberrors "git.home.luguber.info/inful/texbuilder/internal/errors"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
	"git.home.luguber.info/inful/texbuilder/internal/probe"
	"git.home.luguber.info/inful/texbuilder/internal/toolexec"
	"git.home.luguber.info/inful/texbuilder/internal/workspace"
)

// Toolchain names the external tools and their limits.
type Toolchain struct {
	Engine              string
	EngineArgs          []string
	EngineTimeout       time.Duration
	Bibliography        string
	BibliographyTimeout time.Duration
	BibliographyEnabled bool
}

// ToolchainFromConfig builds a Toolchain from configuration.
func ToolchainFromConfig(cfg *config.Config) Toolchain {
	return Toolchain{
		Engine:              cfg.Engine.Command,
		EngineArgs:          cfg.Engine.Args,
		EngineTimeout:       cfg.EngineTimeout(),
		Bibliography:        cfg.Bibliography.Command,
		BibliographyTimeout: cfg.BibliographyTimeout(),
		BibliographyEnabled: cfg.BibliographyEnabled(),
	}
}

// Options describes one build.
type Options struct {
	Root      string // working directory for every pass
	Entry     string // entry document relative to Root
	OutputDir string // absolute, or relative to Root
	Mode      config.BuildMode
	// SkipDirs are directory names not mirrored into the output directory.
	SkipDirs []string
}

// OptionsFromConfig builds run options for the project rooted at root.
func OptionsFromConfig(cfg *config.Config, root string, mode config.BuildMode) Options {
	return Options{
		Root:      root,
		Entry:     cfg.Project.Entry,
		OutputDir: cfg.Project.OutputDir,
		Mode:      mode,
		SkipDirs:  cfg.Watch.IgnoreDirs,
	}
}

func (o Options) outputDir() string { return config.Resolve(o.Root, o.OutputDir) }

func (o Options) stem() string {
	base := filepath.Base(o.Entry)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ArtifactPath returns where a successful build leaves the PDF.
func (o Options) ArtifactPath() string {
	return filepath.Join(o.outputDir(), o.stem()+".pdf")
}

// LogPath returns the engine log location.
func (o Options) LogPath() string {
	return filepath.Join(o.outputDir(), o.stem()+".log")
}

// Result describes a finished (or aborted) run.
type Result struct {
	RunID       string           `json:"run_id"`
	Mode        config.BuildMode `json:"mode"`
	Artifact    string           `json:"artifact,omitempty"`
	Size        int64            `json:"size,omitempty"`
	Passes      []PassResult     `json:"passes"`
	StartedAt   time.Time        `json:"started_at"`
	Duration    time.Duration    `json:"duration"`
	Cleaned     int              `json:"cleaned,omitempty"`
	Diagnostics *Diagnostics     `json:"diagnostics,omitempty"`
}

// Sequencer runs compilation passes. It is safe to reuse but not to call
// Run concurrently for the same output directory.
type Sequencer struct {
	runner   toolexec.Runner
	tools    Toolchain
	observer Observer
	newID    func() string
	now      func() time.Time
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithRecorder reports pass and build metrics to rec.
func WithRecorder(rec metrics.Recorder) Option {
	return WithObserver(recorderObserver{rec: rec})
}

// WithObserver adds an observer. Observers are called in registration order.
func WithObserver(o Observer) Option {
	return func(s *Sequencer) {
		if m, ok := s.observer.(multiObserver); ok {
			s.observer = append(m, o)
			return
		}
		s.observer = multiObserver{o}
	}
}

// NewSequencer returns a Sequencer for tools.
func NewSequencer(runner toolexec.Runner, tools Toolchain, opts ...Option) *Sequencer {
	s := &Sequencer{
		runner:   runner,
		tools:    tools,
		observer: NoopObserver{},
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Plan returns the passes Run will execute for mode.
func (s *Sequencer) Plan(mode config.BuildMode) []Pass {
	return Plan(mode, s.tools.BibliographyEnabled)
}

// Run executes the sequence for opts.Mode. Passes run strictly in order and
// the first failure aborts the rest. The returned Result is non-nil even on
// failure and holds the passes that ran.
func (s *Sequencer) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{RunID: s.newID(), Mode: opts.Mode, StartedAt: s.now()}
	start := time.Now()

	err := s.run(ctx, opts, res)
	res.Duration = time.Since(start)
	s.observer.OnRunComplete(res, err)

	attrs := []any{
		logfields.RunID(res.RunID),
		logfields.Mode(string(res.Mode)),
		logfields.Duration(res.Duration),
		logfields.Outcome(string(OutcomeOf(err))),
	}
	if err != nil {
		slog.Warn("Build failed", append(attrs, logfields.Error(err))...)
	} else {
		slog.Info("Build finished", append(attrs, logfields.Path(res.Artifact))...)
	}
	return res, err
}

func (s *Sequencer) run(ctx context.Context, opts Options, res *Result) error {
	if opts.Mode == "" {
		opts.Mode = config.ModeQuick
		res.Mode = opts.Mode
	}
	if err := s.prepare(opts, res); err != nil {
		return err
	}

	for _, pass := range s.Plan(opts.Mode) {
		if err := ctx.Err(); err != nil {
			return tberrors.Canceled(err).WithContext("pass", pass.Label())
		}
		if err := s.runPass(ctx, opts, pass, res); err != nil {
			if diag, derr := ReadLog(opts.LogPath()); derr == nil {
				res.Diagnostics = diag
				if tbe, ok := tberrors.As(err); ok && tbe.Remediation == "" && diag != nil {
					if sum := diag.Summary(3); sum != "" {
						tbe.WithRemediation("see " + opts.LogPath() + "\n" + sum)
					}
				}
			}
			return err
		}
	}

	info, err := os.Stat(opts.ArtifactPath())
	if err != nil || info.Size() == 0 {
		return tberrors.ArtifactMissing(opts.ArtifactPath())
	}
	res.Artifact = opts.ArtifactPath()
	res.Size = info.Size()

	diag, err := ReadLog(opts.LogPath())
	if err != nil {
		slog.Debug("Could not read engine log", logfields.Path(opts.LogPath()), logfields.Error(err))
	}
	res.Diagnostics = diag
	return nil
}

// prepare validates the entry document, runs the clean step for clean
// mode and mirrors source subdirectories into the output directory so
// included files can write their .aux next to the main one.
func (s *Sequencer) prepare(opts Options, res *Result) error {
	entry := config.Resolve(opts.Root, opts.Entry)
	if info, err := os.Stat(entry); err != nil || info.IsDir() {
		return tberrors.ValidationError("entry document not found: "+opts.Entry).
			WithContext("path", entry)
	}

	out := opts.outputDir()
	if opts.Mode == config.ModeClean {
		cr, err := clean.Clean(clean.Options{OutputDir: out})
		if err != nil {
			return tberrors.FileSystemError("clean", out, err)
		}
		res.Cleaned = len(cr.Files)
		slog.Info("Cleaned output directory", logfields.RunID(res.RunID), logfields.Path(out), logfields.Count(res.Cleaned))
	}
	ws := workspace.NewPersistentManager(opts.Root, out)
	if err := ws.Create(); err != nil {
		return tberrors.FileSystemError("prepare output", out, err)
	}
	if err := mirrorSourceDirs(opts.Root, ws, opts.SkipDirs); err != nil {
		return tberrors.FileSystemError("prepare output", out, err)
	}
	// A successful pass must produce a fresh artifact; an old one would
	// otherwise pass the artifact check.
	if err := os.Remove(opts.ArtifactPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return tberrors.FileSystemError("remove previous artifact", opts.ArtifactPath(), err)
	}
	return nil
}

func (s *Sequencer) runPass(ctx context.Context, opts Options, pass Pass, res *Result) error {
	cmd := s.command(opts, pass)
	s.observer.OnPassStart(res.RunID, pass)
	slog.Debug("Pass started",
		logfields.RunID(res.RunID),
		logfields.Pass(string(pass.Kind)),
		logfields.PassIndex(pass.Index),
		logfields.Tool(cmd.Name))

	out, err := s.runner.Run(ctx, cmd)
	pr := PassResult{Pass: pass, Tool: cmd.Name, Duration: out.Duration, ExitCode: out.ExitCode, Output: out.Output()}
	res.Passes = append(res.Passes, pr)

	wrapped := s.classify(ctx, pass, cmd, out, err)
	s.observer.OnPassComplete(res.RunID, pr, wrapped)
	slog.Debug("Pass finished",
		logfields.RunID(res.RunID),
		logfields.Pass(string(pass.Kind)),
		logfields.PassIndex(pass.Index),
		logfields.Duration(pr.Duration),
		slog.Int("exit_code", pr.ExitCode))
	return wrapped
}

func (s *Sequencer) classify(ctx context.Context, pass Pass, cmd toolexec.Command, out toolexec.Result, err error) error {
	var exitErr *toolexec.ExitError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, toolexec.ErrNotFound):
		return tberrors.ToolMissing(cmd.Name, probe.Remediation(cmd.Name)).WithContext("pass", pass.Label())
	case ctx.Err() != nil:
		return tberrors.Canceled(ctx.Err()).WithContext("pass", pass.Label())
	case errors.Is(err, toolexec.ErrTimeout):
		return tberrors.PassFailed(pass.Label(), pass.Index, err, out.Output()).
			WithContext("timeout", cmd.Timeout.String())
	case errors.As(err, &exitErr):
		return tberrors.PassFailed(pass.Label(), pass.Index, err, exitErr.Output)
	default:
		return tberrors.PassFailed(pass.Label(), pass.Index, err, out.Output())
	}
}

func (s *Sequencer) command(opts Options, pass Pass) toolexec.Command {
	out := opts.outputDir()
	if pass.Kind == PassBibliography {
		return toolexec.Command{
			Name:    s.tools.Bibliography,
			Args:    []string{"--input-directory", out, "--output-directory", out, opts.stem()},
			Dir:     opts.Root,
			Timeout: s.tools.BibliographyTimeout,
		}
	}
	args := []string{"-interaction=nonstopmode", "-file-line-error", "-output-directory=" + out}
	args = append(args, s.tools.EngineArgs...)
	args = append(args, opts.Entry)
	return toolexec.Command{
		Name:    s.tools.Engine,
		Args:    args,
		Dir:     opts.Root,
		Timeout: s.tools.EngineTimeout,
	}
}

// mirrorSourceDirs creates, inside the output workspace, every
// subdirectory of root that holds .tex files. Hidden directories, skip
// names and the output directory itself are not descended into.
func mirrorSourceDirs(root string, ws *workspace.Manager, skip []string) error {
	outAbs, _ := filepath.Abs(ws.GetPath())
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			abs, _ := filepath.Abs(path)
			if strings.HasPrefix(d.Name(), ".") || slices.Contains(skip, d.Name()) || abs == outAbs {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".tex" {
			return nil
		}
		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil || rel == "." {
			return err
		}
		_, err = ws.CreateSubdir(rel)
		return err
	})
}

// OutcomeOf classifies a Run error for metrics and history.
func OutcomeOf(err error) metrics.OutcomeLabel {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || tberrors.IsCategory(err, tberrors.CategoryRuntime):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeFailed
	}
}

// String summarises the result for progress output.
func (r *Result) String() string {
	if r.Artifact == "" {
		return fmt.Sprintf("%s build: %d passes in %s", r.Mode, len(r.Passes), r.Duration.Round(time.Millisecond))
	}
	return fmt.Sprintf("%s build: %s (%d passes in %s)", r.Mode, r.Artifact, len(r.Passes), r.Duration.Round(time.Millisecond))
}
