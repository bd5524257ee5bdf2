package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Repository is an opened working copy.
type Repository struct {
	repo *git.Repository
	wt   *git.Worktree
}

// Open opens the working copy rooted exactly at root. Parent directories are
// not searched. A directory without .git yields ErrNotRepository; a bare
// repository yields ErrBareRepository.
func Open(root string) (*Repository, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s: %w", root, ErrNotRepository)
		}
		return nil, fmt.Errorf("open %s: %w", root, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return nil, fmt.Errorf("%s: %w", root, ErrBareRepository)
		}
		return nil, fmt.Errorf("worktree %s: %w", root, err)
	}
	return &Repository{repo: repo, wt: wt}, nil
}

// StageDir stages every addition, modification and deletion under rel
// (a slash-separated path relative to the root).
func (r *Repository) StageDir(rel string) error {
	rel = filepath.ToSlash(filepath.Clean(rel))
	if _, err := r.wt.Add(rel); err != nil {
		return fmt.Errorf("stage %s: %w", rel, err)
	}
	return nil
}

// StagedChanges reports whether the index differs from HEAD. A false result
// with a nil error means the index is clean; any failure to compute status is
// returned as an error, never as "clean".
func (r *Repository) StagedChanges() (bool, error) {
	files, err := r.StagedFiles()
	if err != nil {
		return false, err
	}
	return len(files) > 0, nil
}

// StagedFiles lists paths whose index entry differs from HEAD, sorted.
func (r *Repository) StagedFiles() ([]string, error) {
	status, err := r.wt.Status()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	var files []string
	for path, s := range status {
		if s.Staging != git.Unmodified && s.Staging != git.Untracked {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Signature identifies a commit author.
type Signature struct {
	Name  string
	Email string
}

// Commit records the index as a new commit and returns its hash.
func (r *Repository) Commit(message string, author Signature, when time.Time) (plumbing.Hash, error) {
	sig := &object.Signature{Name: author.Name, Email: author.Email, When: when}
	hash, err := r.wt.Commit(message, &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit: %w", err)
	}
	return hash, nil
}

// Head returns the commit HEAD points at, or the zero hash for an unborn branch.
func (r *Repository) Head() (plumbing.Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return plumbing.ZeroHash, nil
		}
		return plumbing.ZeroHash, fmt.Errorf("head: %w", err)
	}
	return ref.Hash(), nil
}

// ConfiguredAuthor returns user.name and user.email from the repository's
// local and global git config. Either may be empty.
func (r *Repository) ConfiguredAuthor() Signature {
	cfg, err := r.repo.ConfigScoped(gitconfig.GlobalScope)
	if err != nil {
		return Signature{}
	}
	return Signature{Name: cfg.User.Name, Email: cfg.User.Email}
}

// RemoteURL returns the first URL of the named remote.
func (r *Repository) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		return "", fmt.Errorf("remote %s: %w", name, err)
	}
	if urls := remote.Config().URLs; len(urls) > 0 {
		return urls[0], nil
	}
	return "", fmt.Errorf("remote %s has no URL", name)
}

// Push pushes the current branch to remote. upToDate is true when the
// remote already had every commit; that is not an error.
func (r *Repository) Push(ctx context.Context, remote string, auth transport.AuthMethod) (upToDate bool, err error) {
	if _, err := r.repo.Remote(remote); err != nil {
		return false, fmt.Errorf("push %s: %w", remote, err)
	}
	head, err := r.repo.Head()
	if err != nil {
		return false, fmt.Errorf("push %s: resolve current branch: %w", remote, err)
	}
	if !head.Name().IsBranch() {
		return false, fmt.Errorf("push %s: HEAD is detached at %s", remote, head.Hash())
	}

	err = r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		Auth:       auth,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(head.Name() + ":" + head.Name())},
	})
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		return true, nil
	default:
		return false, fmt.Errorf("push %s: %w", remote, err)
	}
}
