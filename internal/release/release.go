// Package release validates, builds, stages and tags a document release.
package release

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/texbuilder/internal/compile"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	tberrors "git.home.luguber.info/inful/texbuilder/internal/errors"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/probe"
)

// Builder runs one compilation. *compile.Sequencer satisfies it.
type Builder interface {
	Run(ctx context.Context, opts compile.Options) (*compile.Result, error)
}

// CreateOptions controls one release.
type CreateOptions struct {
	Version string
	Force   bool // replace an existing tag and ignore a dirty worktree
	DryRun  bool // stop after staging; no tag is created
	Push    bool
}

// Outcome reports what a release did.
type Outcome struct {
	Tag      string          `json:"tag"`
	Version  string          `json:"version"`
	Build    *compile.Result `json:"build,omitempty"`
	Staged   *Staged         `json:"staged,omitempty"`
	Notes    string          `json:"notes,omitempty"`
	Tagged   bool            `json:"tagged"`
	Replaced bool            `json:"replaced,omitempty"`
	Pushed   bool            `json:"pushed"`
	DryRun   bool            `json:"dry_run,omitempty"`
}

// Packager creates releases for one project.
type Packager struct {
	root    string
	cfg     *config.Config
	repo    *Repo
	builder Builder
	signer  *Signer
	auth    transport.AuthMethod
}

// Option configures a Packager.
type Option func(*Packager)

// WithSigner signs staged artifacts.
func WithSigner(s *Signer) Option { return func(p *Packager) { p.signer = s } }

// WithAuth sets push credentials.
func WithAuth(a transport.AuthMethod) Option { return func(p *Packager) { p.auth = a } }

// NewPackager opens the repository containing root.
func NewPackager(root string, cfg *config.Config, builder Builder, opts ...Option) (*Packager, error) {
	repo, err := OpenRepo(root)
	if err != nil {
		return nil, tberrors.GitError("open", err).WithRemediation("run texbuilder from inside a git repository")
	}
	p := &Packager{root: root, cfg: cfg, repo: repo, builder: builder}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Repo exposes the underlying repository.
func (p *Packager) Repo() *Repo { return p.repo }

// Create validates the request, runs a full build, stages the artifact and
// publishes the tag. Validation failures happen before any build.
func (p *Packager) Create(ctx context.Context, opts CreateOptions) (*Outcome, error) {
	tag, version, err := ValidateVersion(opts.Version)
	if err != nil {
		return nil, tberrors.ValidationError(err.Error())
	}
	out := &Outcome{Tag: tag, Version: version, DryRun: opts.DryRun}

	exists, err := p.validateRepo(tag, opts.Force)
	if err != nil {
		return nil, err
	}
	if err := p.validateLayout(); err != nil {
		return nil, err
	}

	buildOpts := compile.OptionsFromConfig(p.cfg, p.root, config.ModeFull)
	res, err := p.builder.Run(ctx, buildOpts)
	out.Build = res
	if err != nil {
		return out, err
	}
	artifact := buildOpts.ArtifactPath()
	if info, serr := os.Stat(artifact); serr != nil || info.Size() == 0 {
		return out, tberrors.ArtifactMissing(artifact)
	}

	out.Notes = p.notes(version)
	staged, err := Stage(StageOptions{
		Artifact:    artifact,
		DistDir:     config.Resolve(p.root, p.cfg.Project.DistDir),
		StagingBase: config.Resolve(p.root, p.cfg.Project.StateDir),
		Name:        p.cfg.Project.Name,
		Tag:         tag,
		Signer:      p.signer,
	})
	if err != nil {
		return out, tberrors.ReleaseFailed("stage", err)
	}
	out.Staged = staged

	if opts.DryRun {
		slog.Info("Dry run: tag not created", logfields.Tag(tag))
		return out, nil
	}

	var previous *plumbing.Reference
	if exists {
		if previous, err = p.repo.TagRef(tag); err != nil {
			return out, tberrors.GitError("look up tag", err).WithContext("tag", tag)
		}
		if err := p.repo.DeleteTag(tag); err != nil {
			return out, tberrors.GitError("delete tag", err).WithContext("tag", tag)
		}
		out.Replaced = true
	}
	if err := p.repo.CreateTag(tag, tagMessage(version, out.Notes)); err != nil {
		return out, tberrors.GitError("create tag", err).WithContext("tag", tag)
	}
	out.Tagged = true
	slog.Info("Created release tag", logfields.Tag(tag))

	if !opts.Push {
		return out, nil
	}
	remote := p.cfg.Release.Remote
	if err := p.repo.PushTag(ctx, remote, tag, exists, p.auth); err != nil {
		hint := p.rollbackTag(tag, previous, out)
		return out, tberrors.GitError("push tag", err).
			WithContext("remote", remote).
			WithContext("tag", tag).
			WithRemediation(hint + "; fix the remote and rerun the release")
	}
	out.Pushed = true
	slog.Info("Pushed release tag", logfields.Tag(tag), slog.String("remote", remote))
	return out, nil
}

// rollbackTag removes the tag created for a failed push and, when it
// replaced an existing tag, restores the previous one. It returns a hint
// describing the local state.
func (p *Packager) rollbackTag(tag string, previous *plumbing.Reference, out *Outcome) string {
	if err := p.repo.DeleteTag(tag); err != nil {
		slog.Error("Failed to remove local tag after push failure", logfields.Tag(tag), logfields.Error(err))
		return "the new local tag " + tag + " could not be removed"
	}
	out.Tagged = false
	if previous == nil {
		return "the local tag was removed"
	}
	if err := p.repo.RestoreTag(previous); err != nil {
		slog.Error("Failed to restore previous tag after push failure", logfields.Tag(tag), logfields.Error(err))
		return "the local tag was removed and the previous " + tag + " could not be restored (it pointed at " + previous.Hash().String() + ")"
	}
	out.Replaced = false
	return "the previous local tag " + tag + " was restored"
}

// validateLayout rejects a project missing required files or carrying a
// broken bibliography before any build runs.
func (p *Packager) validateLayout() error {
	rep, err := probe.CheckLayout(p.root, probe.DefaultLayout(p.cfg.Project.Entry, p.cfg.Watch.IgnoreDirs))
	if err != nil {
		return tberrors.FileSystemError("check layout", p.root, err)
	}
	if rep.Satisfied() {
		return nil
	}
	var problems []string
	for _, it := range rep.Items {
		if it.Required && !it.Present {
			problems = append(problems, "missing "+it.Path)
		}
	}
	for _, b := range rep.Bibliography {
		if b.Problem != "" {
			problems = append(problems, b.Path+": "+b.Problem)
		}
	}
	return tberrors.ValidationError("project layout incomplete: " + strings.Join(problems, "; ")).
		WithRemediation("run 'texbuilder check' for details")
}

// validateRepo applies the tag, worktree and branch checks. It reports
// whether the tag already exists.
func (p *Packager) validateRepo(tag string, force bool) (bool, error) {
	exists, err := p.repo.TagExists(tag)
	if err != nil {
		return false, tberrors.GitError("look up tag", err)
	}
	if exists && !force {
		return true, tberrors.ValidationError(fmt.Sprintf("tag %s already exists", tag)).
			WithRemediation("choose a new version or pass --force to replace the tag")
	}

	clean, err := p.repo.IsClean()
	if err != nil {
		return exists, tberrors.GitError("status", err)
	}
	if !clean {
		if !force {
			return exists, tberrors.ValidationError("working tree has uncommitted changes").
				WithRemediation("commit or stash your changes, or pass --force")
		}
		slog.Warn("Releasing from a dirty working tree", logfields.Tag(tag))
	}

	branch, err := p.repo.CurrentBranch()
	if err != nil {
		slog.Warn("Could not determine current branch", logfields.Error(err))
	} else if branch != p.cfg.Release.Branch {
		slog.Warn("Releasing from a branch other than the release branch",
			logfields.Branch(branch),
			slog.String("release_branch", p.cfg.Release.Branch))
	}
	return exists, nil
}

func (p *Packager) notes(version string) string {
	if p.cfg.Release.Changelog == "" {
		return ""
	}
	path := config.Resolve(p.root, p.cfg.Release.Changelog)
	data, err := os.ReadFile(path) // #nosec G304 -- configured changelog path
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Could not read changelog", logfields.Path(path), logfields.Error(err))
		}
		return ""
	}
	return ExtractNotes(data, version)
}

func tagMessage(version, notes string) string {
	msg := "Release version " + version
	if notes = strings.TrimSpace(notes); notes != "" {
		msg += "\n\n" + notes
	}
	return msg + "\n"
}
