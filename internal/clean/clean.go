// Package clean removes intermediate and output artifacts produced by
// the typesetting engine and the bibliography processor.
package clean

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

// IntermediateSuffixes are the file suffixes LaTeX tooling leaves behind.
var IntermediateSuffixes = []string{
	".aux", ".bbl", ".bcf", ".blg", ".fdb_latexmk", ".fls", ".log", ".out",
	".run.xml", ".synctex.gz", ".toc", ".lof", ".lot", ".acn", ".acr", ".alg",
	".glg", ".glo", ".gls", ".idx", ".ilg", ".ind", ".ist", ".lol", ".nav",
	".snm", ".vrb", ".xdy", ".tdo", ".figlist", ".makefile",
}

// IsIntermediate reports whether name carries an intermediate suffix.
func IsIntermediate(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range IntermediateSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// Options controls what Clean removes.
type Options struct {
	// OutputDir is emptied (every file, every subdirectory).
	OutputDir string
	// Root, when set, is also scanned recursively for stray intermediates.
	Root string
	// SkipDirs are directory names never descended into while scanning Root.
	SkipDirs []string
	KeepPDF  bool
	DryRun   bool
}

// Result lists what was (or, for a dry run, would be) removed.
type Result struct {
	Files []string
	Dirs  []string
	Bytes int64
}

// Clean removes artifacts according to opts. A missing output directory is
// not an error, so cleaning twice is harmless.
func Clean(opts Options) (Result, error) {
	var res Result
	if opts.OutputDir != "" {
		if err := cleanOutput(opts, &res); err != nil {
			return res, err
		}
	}
	if opts.Root != "" {
		if err := cleanStray(opts, &res); err != nil {
			return res, err
		}
	}
	slog.Debug("Cleaned artifacts",
		logfields.Count(len(res.Files)),
		slog.Int64("bytes", res.Bytes),
		slog.Bool("dry_run", opts.DryRun))
	return res, nil
}

func cleanOutput(opts Options, res *Result) error {
	if _, err := os.Stat(opts.OutputDir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	var dirs []string
	err := filepath.WalkDir(opts.OutputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != opts.OutputDir {
				dirs = append(dirs, path)
			}
			return nil
		}
		if opts.KeepPDF && strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		return removeFile(path, d, opts.DryRun, res)
	})
	if err != nil {
		return fmt.Errorf("clean %s: %w", opts.OutputDir, err)
	}

	// Deepest first so parents are empty by the time they are visited.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		if opts.DryRun {
			continue
		}
		if err := os.Remove(dir); err == nil {
			res.Dirs = append(res.Dirs, dir)
		}
	}
	return nil
}

func cleanStray(opts Options, res *Result) error {
	outAbs, _ := filepath.Abs(opts.OutputDir)
	err := filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == opts.Root {
				return nil
			}
			name := d.Name()
			abs, _ := filepath.Abs(path)
			if strings.HasPrefix(name, ".") || slices.Contains(opts.SkipDirs, name) || (opts.OutputDir != "" && abs == outAbs) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsIntermediate(d.Name()) {
			return nil
		}
		return removeFile(path, d, opts.DryRun, res)
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", opts.Root, err)
	}
	return nil
}

func removeFile(path string, d fs.DirEntry, dryRun bool, res *Result) error {
	if info, err := d.Info(); err == nil {
		res.Bytes += info.Size()
	}
	res.Files = append(res.Files, path)
	if dryRun {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
