package commands

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"

	"git.home.luguber.info/inful/texbuilder/internal/auth"
	"git.home.luguber.info/inful/texbuilder/internal/compile"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	tberrors "git.home.luguber.info/inful/texbuilder/internal/errors"
	"git.home.luguber.info/inful/texbuilder/internal/history"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/release"
)

// ReleaseCmd groups the release subcommands.
type ReleaseCmd struct {
	Create ReleaseCreateCmd `cmd:"" help:"Build, stage, tag and push a release"`
	List   ReleaseListCmd   `cmd:"" help:"List release tags"`
}

// ReleaseCreateCmd implements 'release create'.
type ReleaseCreateCmd struct {
	Version string `arg:"" help:"Release version (X.Y.Z, optional leading v)"`
	Force   bool   `help:"Replace an existing tag and allow a dirty worktree"`
	DryRun  bool   `name:"dry-run" help:"Build and stage only; create no tag"`
	NoPush  bool   `name:"no-push" help:"Create the tag locally without pushing it"`
}

func (r *ReleaseCreateCmd) Run(g *Global, root *CLI) error {
	p, err := loadProject(root)
	if err != nil {
		return err
	}
	store := p.openHistory()
	defer closeHistory(store)

	var opts []release.Option
	if key := p.Cfg.Release.SigningKey; key != "" {
		var passphrase []byte
		if env := p.Cfg.Release.PassphraseEnv; env != "" {
			passphrase = []byte(os.Getenv(env))
		}
		signer, serr := release.LoadSigner(config.Resolve(p.Root, key), passphrase)
		if serr != nil {
			return tberrors.ConfigInvalid(serr).WithContext("signing_key", key)
		}
		opts = append(opts, release.WithSigner(signer))
	}
	push := !r.NoPush && !r.DryRun
	if push {
		method, aerr := auth.ForRelease(p.Cfg.Release.Auth)
		if aerr != nil {
			return tberrors.ConfigInvalid(aerr).WithContext("field", "release.auth")
		}
		opts = append(opts, release.WithAuth(method))
	}

	packager, err := release.NewPackager(p.Root, p.Cfg, p.sequencer(g, nil, store), opts...)
	if err != nil {
		return err
	}

	started := time.Now()
	out, err := packager.Create(g.context(), release.CreateOptions{
		Version: r.Version,
		Force:   r.Force,
		DryRun:  r.DryRun,
		Push:    push,
	})
	recordRelease(store, out, started, err)
	if err != nil {
		return err
	}

	if out.Staged != nil {
		g.printf("Staged %s\n", out.Staged.PDF)
		g.printf("  sha256 %s\n", out.Staged.SHA256)
		if out.Staged.Signature != "" {
			g.printf("  signature %s\n", out.Staged.Signature)
		}
	}
	switch {
	case out.DryRun:
		g.printf("Dry run: %s was not tagged\n", out.Tag)
	case out.Pushed:
		g.printf("Released %s and pushed to %s\n", out.Tag, p.Cfg.Release.Remote)
	default:
		g.printf("Tagged %s locally; push it with 'git push %s %s'\n", out.Tag, p.Cfg.Release.Remote, out.Tag)
	}
	return nil
}

// recordRelease stores a release entry; builds are recorded by the observer.
func recordRelease(store history.Store, out *release.Outcome, started time.Time, err error) {
	if store == nil || out == nil {
		return
	}
	e := history.Entry{
		RunID:     uuid.NewString(),
		Kind:      history.KindRelease,
		Mode:      string(config.ModeFull),
		StartedAt: started,
		Duration:  time.Since(started),
		Outcome:   string(compile.OutcomeOf(err)),
		Detail:    out.Tag,
	}
	if out.Build != nil {
		e.RunID = out.Build.RunID
	}
	if out.Staged != nil {
		e.Artifact = out.Staged.PDF
	}
	if err != nil {
		e.Detail = out.Tag + ": " + err.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if rerr := store.Record(ctx, e); rerr != nil {
		slog.Warn("Failed to record release", logfields.Tag(out.Tag), logfields.Error(rerr))
	}
}

// ReleaseListCmd implements 'release list'.
type ReleaseListCmd struct{}

func (r *ReleaseListCmd) Run(g *Global, root *CLI) error {
	rootDir, err := projectRoot(root)
	if err != nil {
		return err
	}
	repo, err := release.OpenRepo(rootDir)
	if err != nil {
		return tberrors.GitError("open repository", err).WithContext("path", rootDir)
	}
	tags, err := repo.ListTags()
	if err != nil {
		return tberrors.GitError("list tags", err)
	}
	if len(tags) == 0 {
		g.printf("No releases yet\n")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(g.Out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Tag", "Date", "Commit", "Subject"})
	for _, tag := range tags {
		commit := tag.Commit
		if len(commit) > 8 {
			commit = commit[:8]
		}
		t.AppendRow(table.Row{tag.Name, tag.Date.Format("2006-01-02"), commit, tag.Subject})
	}
	t.Render()
	return nil
}
