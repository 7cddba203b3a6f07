package release

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuilder/internal/compile"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	tberrors "git.home.luguber.info/inful/texbuilder/internal/errors"
)

const fakePDF = "%PDF-1.5\nfake document\n%%EOF\n"

type fakeBuilder struct {
	calls int
	modes []config.BuildMode
	fail  error
}

func (b *fakeBuilder) Run(_ context.Context, opts compile.Options) (*compile.Result, error) {
	b.calls++
	b.modes = append(b.modes, opts.Mode)
	res := &compile.Result{Mode: opts.Mode}
	if b.fail != nil {
		return res, b.fail
	}
	if err := os.MkdirAll(filepath.Dir(opts.ArtifactPath()), 0o750); err != nil {
		return res, err
	}
	if err := os.WriteFile(opts.ArtifactPath(), []byte(fakePDF), 0o600); err != nil {
		return res, err
	}
	res.Artifact = opts.ArtifactPath()
	return res, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func commitAll(t *testing.T, repo *git.Repository, msg string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddGlob("."))
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

// initProject creates a committed LaTeX project in a fresh repository.
func initProject(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "main.tex"), "\\documentclass{article}\n\\begin{document}Hi\\end{document}\n")
	writeFile(t, filepath.Join(dir, "content", "intro.tex"), "\\section{Intro}\n")
	writeFile(t, filepath.Join(dir, ".gitignore"), "/build/\n/dist/\n/.texbuilder/\n")
	writeFile(t, filepath.Join(dir, "CHANGELOG.md"), "# Changelog\n\n## [1.2.0] - 2025-03-01\n\n- New chapter on results\n\n## [1.1.0]\n\n- Typos\n")
	commitAll(t, repo, "initial")
	return dir, repo
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Project.Name = "thesis"
	return cfg
}

func newPackager(t *testing.T, dir string, b Builder) *Packager {
	t.Helper()
	p, err := NewPackager(dir, testConfig(t), b)
	require.NoError(t, err)
	return p
}

func TestNewPackagerOutsideRepository(t *testing.T) {
	_, err := NewPackager(t.TempDir(), testConfig(t), &fakeBuilder{})
	require.Error(t, err)
	assert.True(t, tberrors.IsCategory(err, tberrors.CategoryGit))
}

func TestCreateStagesAndTags(t *testing.T) {
	dir, repo := initProject(t)
	b := &fakeBuilder{}
	p := newPackager(t, dir, b)

	out, err := p.Create(context.Background(), CreateOptions{Version: "1.2.0"})
	require.NoError(t, err)

	assert.Equal(t, 1, b.calls)
	assert.Equal(t, []config.BuildMode{config.ModeFull}, b.modes)
	assert.Equal(t, "v1.2.0", out.Tag)
	assert.True(t, out.Tagged)
	assert.False(t, out.Pushed)
	assert.Equal(t, "- New chapter on results", out.Notes)

	pdf := filepath.Join(dir, "dist", "thesis-v1.2.0.pdf")
	assert.Equal(t, pdf, out.Staged.PDF)
	data, err := os.ReadFile(pdf)
	require.NoError(t, err)
	assert.Equal(t, fakePDF, string(data))

	sum := sha256.Sum256([]byte(fakePDF))
	checksum, err := os.ReadFile(pdf + ".sha256")
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:])+"  thesis-v1.2.0.pdf\n", string(checksum))
	assert.NoFileExists(t, pdf+".asc")

	ref, err := repo.Tag("v1.2.0")
	require.NoError(t, err)
	tagObj, err := repo.TagObject(ref.Hash())
	require.NoError(t, err)
	assert.Contains(t, tagObj.Message, "Release version 1.2.0")
	assert.Contains(t, tagObj.Message, "New chapter on results")

	entries, err := os.ReadDir(filepath.Join(dir, ".texbuilder"))
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directory is removed")
}

func TestCreateAcceptsLeadingV(t *testing.T) {
	dir, _ := initProject(t)
	out, err := newPackager(t, dir, &fakeBuilder{}).Create(context.Background(), CreateOptions{Version: "v2.0.0"})
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0", out.Tag)
	assert.Empty(t, out.Notes)
}

func TestCreateRejectsInvalidVersionBeforeBuilding(t *testing.T) {
	dir, _ := initProject(t)
	b := &fakeBuilder{}
	_, err := newPackager(t, dir, b).Create(context.Background(), CreateOptions{Version: "1.2"})
	require.Error(t, err)
	assert.True(t, tberrors.IsCategory(err, tberrors.CategoryValidation))
	assert.Zero(t, b.calls)
}

func TestCreateExistingTag(t *testing.T) {
	dir, _ := initProject(t)
	b := &fakeBuilder{}
	p := newPackager(t, dir, b)
	require.NoError(t, p.Repo().CreateTag("v1.0.0", "Release version 1.0.0\n"))

	_, err := p.Create(context.Background(), CreateOptions{Version: "1.0.0"})
	require.Error(t, err)
	assert.True(t, tberrors.IsCategory(err, tberrors.CategoryValidation))
	assert.Zero(t, b.calls, "no build when the tag exists")

	out, err := p.Create(context.Background(), CreateOptions{Version: "1.0.0", Force: true})
	require.NoError(t, err)
	assert.True(t, out.Replaced)
	assert.Equal(t, 1, b.calls)

	exists, err := p.Repo().TagExists("v1.0.0")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateDirtyWorktree(t *testing.T) {
	dir, _ := initProject(t)
	writeFile(t, filepath.Join(dir, "chapter.tex"), "uncommitted")
	b := &fakeBuilder{}
	p := newPackager(t, dir, b)

	_, err := p.Create(context.Background(), CreateOptions{Version: "1.0.0"})
	require.Error(t, err)
	assert.True(t, tberrors.IsCategory(err, tberrors.CategoryValidation))
	assert.Zero(t, b.calls)

	_, err = p.Create(context.Background(), CreateOptions{Version: "1.0.0", Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, b.calls)
}

func TestCreateDryRunCreatesNoTag(t *testing.T) {
	dir, _ := initProject(t)
	p := newPackager(t, dir, &fakeBuilder{})

	out, err := p.Create(context.Background(), CreateOptions{Version: "1.2.0", DryRun: true})
	require.NoError(t, err)
	assert.True(t, out.DryRun)
	assert.False(t, out.Tagged)
	assert.FileExists(t, out.Staged.PDF)

	exists, err := p.Repo().TagExists("v1.2.0")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateBuildFailureCreatesNoTag(t *testing.T) {
	dir, _ := initProject(t)
	buildErr := tberrors.PassFailed("[1/4] engine", 1, errors.New("exit status 1"), "! Undefined control sequence.")
	p := newPackager(t, dir, &fakeBuilder{fail: buildErr})

	out, err := p.Create(context.Background(), CreateOptions{Version: "1.2.0"})
	require.ErrorIs(t, err, buildErr)
	assert.Nil(t, out.Staged)

	exists, err := p.Repo().TagExists("v1.2.0")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoDirExists(t, filepath.Join(dir, "dist"))
}

func TestCreatePushFailureRemovesLocalTag(t *testing.T) {
	dir, repo := initProject(t)
	_, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{filepath.Join(t.TempDir(), "missing.git")},
	})
	require.NoError(t, err)
	p := newPackager(t, dir, &fakeBuilder{})

	out, err := p.Create(context.Background(), CreateOptions{Version: "1.2.0", Push: true})
	require.Error(t, err)
	assert.True(t, tberrors.IsCategory(err, tberrors.CategoryGit))
	assert.False(t, out.Tagged)
	assert.False(t, out.Pushed)

	exists, err := p.Repo().TagExists("v1.2.0")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateRejectsIncompleteLayoutBeforeBuilding(t *testing.T) {
	t.Run("missing content directory", func(t *testing.T) {
		dir, repo := initProject(t)
		wt, err := repo.Worktree()
		require.NoError(t, err)
		_, err = wt.Remove("content/intro.tex")
		require.NoError(t, err)
		commitAll(t, repo, "drop content")
		require.NoError(t, os.RemoveAll(filepath.Join(dir, "content")))

		b := &fakeBuilder{}
		_, err = newPackager(t, dir, b).Create(context.Background(), CreateOptions{Version: "1.2.0"})
		require.Error(t, err)
		assert.True(t, tberrors.IsCategory(err, tberrors.CategoryValidation))
		assert.Contains(t, err.Error(), "missing content")
		assert.Zero(t, b.calls)
	})

	t.Run("broken bibliography", func(t *testing.T) {
		dir, repo := initProject(t)
		writeFile(t, filepath.Join(dir, "content", "refs.bib"), "@book{knuth84, title={TeX}\n")
		commitAll(t, repo, "add bibliography")

		b := &fakeBuilder{}
		_, err := newPackager(t, dir, b).Create(context.Background(), CreateOptions{Version: "1.2.0"})
		require.Error(t, err)
		assert.True(t, tberrors.IsCategory(err, tberrors.CategoryValidation))
		assert.Contains(t, err.Error(), "mismatched braces")
		assert.Zero(t, b.calls)
	})
}

func TestCreateForcedPushFailureRestoresPreviousTag(t *testing.T) {
	dir, repo := initProject(t)
	_, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{filepath.Join(t.TempDir(), "missing.git")},
	})
	require.NoError(t, err)
	p := newPackager(t, dir, &fakeBuilder{})
	require.NoError(t, p.Repo().CreateTag("v1.2.0", "Release version 1.2.0\n\nfirst cut\n"))
	before, err := p.Repo().TagRef("v1.2.0")
	require.NoError(t, err)

	out, err := p.Create(context.Background(), CreateOptions{Version: "1.2.0", Force: true, Push: true})
	require.Error(t, err)
	assert.True(t, tberrors.IsCategory(err, tberrors.CategoryGit))
	assert.False(t, out.Tagged)
	assert.False(t, out.Replaced)
	tbe, ok := tberrors.As(err)
	require.True(t, ok)
	assert.Contains(t, tbe.Remediation, "previous local tag v1.2.0 was restored")

	after, err := p.Repo().TagRef("v1.2.0")
	require.NoError(t, err)
	assert.Equal(t, before.Hash(), after.Hash())

	obj, err := repo.TagObject(after.Hash())
	require.NoError(t, err)
	assert.Contains(t, obj.Message, "first cut")
}

func TestListTags(t *testing.T) {
	dir, repo := initProject(t)
	r, err := OpenRepo(dir)
	require.NoError(t, err)

	for _, tag := range []string{"v1.2.0", "v0.9.0", "v1.10.0"} {
		require.NoError(t, r.CreateTag(tag, "Release version "+tag[1:]+"\n\nnotes"))
	}
	head, err := repo.Head()
	require.NoError(t, err)
	_, err = repo.CreateTag("draft", head.Hash(), nil)
	require.NoError(t, err)
	_, err = repo.CreateTag("v3.0.0", head.Hash(), nil) // lightweight
	require.NoError(t, err)

	tags, err := r.ListTags()
	require.NoError(t, err)
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	assert.Equal(t, []string{"v3.0.0", "v1.10.0", "v1.2.0", "v0.9.0"}, names)
	assert.Equal(t, "initial", tags[0].Subject)
	assert.Equal(t, "Release version 1.10.0", tags[1].Subject)
	assert.Equal(t, head.Hash().String(), tags[1].Commit)
	assert.False(t, tags[1].Date.IsZero())
}

func TestValidateVersion(t *testing.T) {
	tests := []struct {
		in      string
		tag     string
		wantErr bool
	}{
		{in: "1.2.0", tag: "v1.2.0"},
		{in: "v1.2.0", tag: "v1.2.0"},
		{in: " 10.0.3 ", tag: "v10.0.3"},
		{in: "1.2", wantErr: true},
		{in: "1.2.0-rc1", wantErr: true},
		{in: "01.2.0", wantErr: true},
		{in: "vv1.2.0", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			tag, _, err := ValidateVersion(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.tag, tag)
		})
	}
}
