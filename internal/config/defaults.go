package config

import (
	"path/filepath"
	"slices"
	"strings"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// Default values shared with other packages.
var (
	DefaultWatchExtensions = []string{".tex", ".cls", ".sty", ".bib"}
	DefaultIgnoreDirs      = []string{"build", ".git", "__pycache__", "node_modules"}
	DefaultOptionalTools   = []string{"makeindex", "latexmk"}
)

// ProjectDefaultApplier handles project layout defaults.
type ProjectDefaultApplier struct{}

func (ProjectDefaultApplier) Domain() string { return "project" }

func (ProjectDefaultApplier) ApplyDefaults(cfg *Config) error {
	p := &cfg.Project
	if p.Entry == "" {
		p.Entry = "main.tex"
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(p.Entry), filepath.Ext(p.Entry))
	}
	if p.OutputDir == "" {
		p.OutputDir = "build"
	}
	if p.DistDir == "" {
		p.DistDir = "dist"
	}
	if p.StateDir == "" {
		p.StateDir = ".texbuilder"
	}
	return nil
}

// ToolchainDefaultApplier handles engine and bibliography defaults.
type ToolchainDefaultApplier struct{}

func (ToolchainDefaultApplier) Domain() string { return "toolchain" }

func (ToolchainDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Engine.Command == "" {
		cfg.Engine.Command = "pdflatex"
	}
	if cfg.Engine.Timeout == "" {
		cfg.Engine.Timeout = "5m"
	}
	if cfg.Bibliography.Command == "" {
		cfg.Bibliography.Command = "biber"
	}
	if cfg.Bibliography.Timeout == "" {
		cfg.Bibliography.Timeout = "60s"
	}
	if len(cfg.Check.OptionalTools) == 0 {
		cfg.Check.OptionalTools = append([]string(nil), DefaultOptionalTools...)
	}
	return nil
}

// WatchDefaultApplier handles watcher defaults.
type WatchDefaultApplier struct{}

func (WatchDefaultApplier) Domain() string { return "watch" }

func (WatchDefaultApplier) ApplyDefaults(cfg *Config) error {
	w := &cfg.Watch
	if len(w.Dirs) == 0 {
		w.Dirs = []string{"."}
	}
	if len(w.Extensions) == 0 {
		w.Extensions = append([]string(nil), DefaultWatchExtensions...)
	}
	for i, ext := range w.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		w.Extensions[i] = ext
	}
	if len(w.IgnoreDirs) == 0 {
		w.IgnoreDirs = append([]string(nil), DefaultIgnoreDirs...)
	}
	// The output directory never triggers rebuilds.
	out := filepath.Base(filepath.Clean(cfg.Project.OutputDir))
	if !slices.Contains(w.IgnoreDirs, out) {
		w.IgnoreDirs = append(w.IgnoreDirs, out)
	}
	if w.Debounce == "" {
		w.Debounce = "2s"
	}
	if w.PollInterval == "" {
		w.PollInterval = "1s"
	}
	if w.Backend == "" {
		w.Backend = BackendFSNotify
	}
	if w.Mode == "" {
		w.Mode = ModeQuick
	}
	return nil
}

// ReleaseDefaultApplier handles release defaults.
type ReleaseDefaultApplier struct{}

func (ReleaseDefaultApplier) Domain() string { return "release" }

func (ReleaseDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Release.Branch == "" {
		cfg.Release.Branch = "main"
	}
	if cfg.Release.Remote == "" {
		cfg.Release.Remote = "origin"
	}
	if cfg.Release.Changelog == "" {
		cfg.Release.Changelog = "CHANGELOG.md"
	}
	return nil
}

// AmbientDefaultApplier handles history and logging defaults.
type AmbientDefaultApplier struct{}

func (AmbientDefaultApplier) Domain() string { return "ambient" }

func (AmbientDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(cfg.Project.StateDir, "history.db")
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}

// defaultAppliers runs in order; later domains may read earlier results.
func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		ProjectDefaultApplier{},
		ToolchainDefaultApplier{},
		WatchDefaultApplier{},
		ReleaseDefaultApplier{},
		AmbientDefaultApplier{},
	}
}

func applyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers() {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
