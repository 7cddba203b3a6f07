package release

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Repo is the subset of repository operations a release needs.
type Repo struct {
	repo *git.Repository
	now  func() time.Time
}

// TagInfo describes one release tag.
type TagInfo struct {
	Name    string    `json:"name"`
	Commit  string    `json:"commit"`
	Date    time.Time `json:"date"`
	Subject string    `json:"subject"`
}

// OpenRepo opens the repository containing dir.
func OpenRepo(dir string) (*Repo, error) {
	r, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", dir, err)
	}
	return &Repo{repo: r, now: time.Now}, nil
}

// TagExists reports whether tag exists locally.
func (r *Repo) TagExists(tag string) (bool, error) {
	_, err := r.repo.Tag(tag)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, git.ErrTagNotFound):
		return false, nil
	default:
		return false, err
	}
}

// IsClean reports whether the worktree has no staged, unstaged or untracked
// changes outside ignored paths.
func (r *Repo) IsClean() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, err
	}
	st, err := wt.Status()
	if err != nil {
		return false, err
	}
	return st.IsClean(), nil
}

// CurrentBranch returns the short branch name, or "" for a detached HEAD.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", err
	}
	if !head.Name().IsBranch() {
		return "", nil
	}
	return head.Name().Short(), nil
}

// CreateTag creates an annotated tag on HEAD.
func (r *Repo) CreateTag(tag, message string) error {
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	_, err = r.repo.CreateTag(tag, head.Hash(), &git.CreateTagOptions{
		Tagger:  r.signature(),
		Message: message,
	})
	return err
}

// TagRef returns the local reference for tag.
func (r *Repo) TagRef(tag string) (*plumbing.Reference, error) {
	return r.repo.Tag(tag)
}

// RestoreTag points a tag reference back at its previous target. Deleting
// a tag only drops the reference, so an annotated tag object is still there.
func (r *Repo) RestoreTag(ref *plumbing.Reference) error {
	return r.repo.Storer.SetReference(ref)
}

// DeleteTag removes a local tag.
func (r *Repo) DeleteTag(tag string) error {
	return r.repo.DeleteTag(tag)
}

// PushTag pushes tag to remote. Force replaces a tag that already exists there.
func (r *Repo) PushTag(ctx context.Context, remote, tag string, force bool, auth transport.AuthMethod) error {
	refspec := "refs/tags/" + tag + ":refs/tags/" + tag
	if force {
		refspec = "+" + refspec
	}
	err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(refspec)},
		Auth:       auth,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

// ListTags returns every vX.Y.Z tag, newest version first.
func (r *Repo) ListTags() ([]TagInfo, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, err
	}
	var tags []TagInfo
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if !IsReleaseTag(name) {
			return nil
		}
		info := TagInfo{Name: name}
		if obj, err := r.repo.TagObject(ref.Hash()); err == nil {
			info.Date = obj.Tagger.When
			info.Subject = firstLine(obj.Message)
			info.Commit = obj.Target.String()
		} else if errors.Is(err, plumbing.ErrObjectNotFound) {
			c, cerr := r.repo.CommitObject(ref.Hash())
			if cerr != nil {
				return cerr
			}
			info.Date = c.Committer.When
			info.Subject = firstLine(c.Message)
			info.Commit = c.Hash.String()
		} else {
			return err
		}
		tags = append(tags, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(tags, func(a, b TagInfo) int { return compareTags(b.Name, a.Name) })
	return tags, nil
}

// signature uses the configured git identity when there is one.
func (r *Repo) signature() *object.Signature {
	sig := &object.Signature{Name: "texbuilder", Email: "texbuilder@localhost", When: r.now()}
	cfg, err := r.repo.ConfigScoped(gitconfig.GlobalScope)
	if err != nil {
		return sig
	}
	if cfg.User.Name != "" {
		sig.Name = cfg.User.Name
	}
	if cfg.User.Email != "" {
		sig.Email = cfg.User.Email
	}
	return sig
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
