package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/QualiSystems/colony-cli/internal/domain"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"
)

// RemoteName is the remote temp branches are pushed to.
const RemoteName = "origin"

// TempCommitMessage is the message of the commit that captures local changes on a temp branch.
const TempCommitMessage = "Uncommitted temp branch - temp commit for validation"

// gitRepository inspects with go-git and mutates through the git binary, since go-git has
// no stash support.
type gitRepository struct {
	repo    *git.Repository
	workDir string
	gitDir  string
	runner  CommandRunner
	logger  *zap.Logger
}

// OpenGitRepository opens the work tree rooted at path.
func OpenGitRepository(path string, runner CommandRunner, logger *zap.Logger) (GitRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	repo, err := git.PlainOpen(abs)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, domain.BadRepository("Not a git folder", nil)
		}
		return nil, domain.BadRepository("failed to open git repository", err)
	}
	if _, err := repo.Worktree(); err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return nil, domain.BadRepository("Cannot get folder tree structure. Repo is bare", nil)
		}
		return nil, domain.BadRepository("failed to open work tree", err)
	}
	if runner == nil {
		runner = NewGitCLI(logger)
	}
	return &gitRepository{
		repo:    repo,
		workDir: abs,
		gitDir:  filepath.Join(abs, git.GitDirName),
		runner:  runner,
		logger:  logger,
	}, nil
}

func (r *gitRepository) WorkDir() string { return r.workDir }

func (r *gitRepository) GitDir() string { return r.gitDir }

// IsDetached reports whether HEAD points at a commit rather than a branch.
func (r *gitRepository) IsDetached(_ context.Context) (bool, error) {
	head, err := r.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return false, fmt.Errorf("failed to read HEAD: %w", err)
	}
	return head.Type() != plumbing.SymbolicReference, nil
}

// CurrentBranch returns the active branch name.
func (r *gitRepository) CurrentBranch(ctx context.Context) (string, error) {
	detached, err := r.IsDetached(ctx)
	if err != nil {
		return "", err
	}
	if detached {
		return "", domain.BadRepository("Repo's HEAD is in detached state", nil)
	}
	head, err := r.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	return head.Target().Short(), nil
}

func (r *gitRepository) status() (git.Status, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return status, nil
}

// IsDirty reports tracked-file modifications, staged or not.
func (r *gitRepository) IsDirty(_ context.Context) (bool, error) {
	status, err := r.status()
	if err != nil {
		return false, err
	}
	return hasTrackedChanges(status), nil
}

// UntrackedFiles lists untracked, non-ignored paths relative to the work tree.
func (r *gitRepository) UntrackedFiles(_ context.Context) ([]string, error) {
	status, err := r.status()
	if err != nil {
		return nil, err
	}
	return untrackedPaths(status), nil
}

func hasTrackedChanges(status git.Status) bool {
	for _, fs := range status {
		if fs.Worktree == git.Untracked {
			continue
		}
		if fs.Staging != git.Unmodified || fs.Worktree != git.Unmodified {
			return true
		}
	}
	return false
}

func untrackedPaths(status git.Status) []string {
	var paths []string
	for path, fs := range status {
		if fs.Worktree == git.Untracked {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

func (r *gitRepository) remoteRef(branch string) (*plumbing.Reference, error) {
	ref, err := r.repo.Reference(plumbing.NewRemoteReferenceName(RemoteName, branch), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	return ref, err
}

// CurrentBranchExistsOnRemote checks the remote-tracking refs for the active branch.
func (r *gitRepository) CurrentBranchExistsOnRemote(ctx context.Context) (bool, error) {
	branch, err := r.CurrentBranch(ctx)
	if err != nil {
		return false, err
	}
	ref, err := r.remoteRef(branch)
	if err != nil {
		return false, fmt.Errorf("failed to read remote ref for %s: %w", branch, err)
	}
	return ref != nil, nil
}

// IsCurrentBranchSynced compares the local tip with the remote-tracking tip of the same name.
func (r *gitRepository) IsCurrentBranchSynced(ctx context.Context) (bool, error) {
	branch, err := r.CurrentBranch(ctx)
	if err != nil {
		return false, err
	}
	remote, err := r.remoteRef(branch)
	if err != nil {
		return false, fmt.Errorf("failed to read remote ref for %s: %w", branch, err)
	}
	if remote == nil {
		return false, nil
	}
	local, err := r.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read branch %s: %w", branch, err)
	}
	return local.Hash() == remote.Hash(), nil
}

func (r *gitRepository) IsFullySyncedWithRemote(ctx context.Context) (bool, error) {
	state, err := r.State(ctx)
	if err != nil {
		return false, err
	}
	return state.IsFullySyncedWithRemote(), nil
}

// State takes a fresh snapshot of the working copy.
func (r *gitRepository) State(ctx context.Context) (domain.WorkingCopyState, error) {
	var state domain.WorkingCopyState
	detached, err := r.IsDetached(ctx)
	if err != nil {
		return state, err
	}
	state.IsDetached = detached
	if detached {
		return state, nil
	}
	status, err := r.status()
	if err != nil {
		return state, err
	}
	state.IsDirty = hasTrackedChanges(status)
	state.HasUntracked = len(untrackedPaths(status)) > 0
	if state.ActiveBranchName, err = r.CurrentBranch(ctx); err != nil {
		return state, err
	}
	if state.ExistsOnRemote, err = r.CurrentBranchExistsOnRemote(ctx); err != nil {
		return state, err
	}
	if state.IsSyncedWithRemote, err = r.IsCurrentBranchSynced(ctx); err != nil {
		return state, err
	}
	return state, nil
}

func (r *gitRepository) git(ctx context.Context, args ...string) (string, error) {
	return r.runner.Run(ctx, r.workDir, args...)
}

// StashCount returns the number of stash entries.
func (r *gitRepository) StashCount(ctx context.Context) (int, error) {
	out, err := r.git(ctx, "stash", "list")
	if err != nil {
		return 0, err
	}
	return strings.Count(out, "stash@"), nil
}

func (r *gitRepository) StashPush(ctx context.Context) error {
	_, err := r.git(ctx, "stash", "push", "--include-untracked")
	return err
}

// StashApply re-applies the newest stash entry and keeps it.
func (r *gitRepository) StashApply(ctx context.Context) error {
	_, err := r.git(ctx, "stash", "apply")
	return err
}

// StashPop restores the newest stash entry including its index state.
func (r *gitRepository) StashPop(ctx context.Context) error {
	_, err := r.git(ctx, "stash", "pop", "--index")
	return err
}

func (r *gitRepository) CheckoutNewBranch(ctx context.Context, name string) error {
	_, err := r.git(ctx, "checkout", "-b", name)
	return err
}

func (r *gitRepository) CheckoutBranch(ctx context.Context, name string) error {
	_, err := r.git(ctx, "checkout", name)
	return err
}

func (r *gitRepository) AddAll(ctx context.Context) error {
	_, err := r.git(ctx, "add", "-A")
	return err
}

// Commit records the index. Hooks and signing are skipped: the commit only lives on a
// disposable branch.
func (r *gitRepository) Commit(ctx context.Context, message string) error {
	_, err := r.git(ctx, "-c", "commit.gpgsign=false", "commit", "--no-verify", "-m", message)
	return err
}

// DiscardWorkingChanges drops tracked and untracked changes on the current branch.
func (r *gitRepository) DiscardWorkingChanges(ctx context.Context) error {
	if _, err := r.git(ctx, "reset", "--hard"); err != nil {
		return err
	}
	_, err := r.git(ctx, "clean", "-fd")
	return err
}

func (r *gitRepository) PushBranch(ctx context.Context, name string) error {
	_, err := r.git(ctx, "push", "--no-verify", RemoteName, name)
	return err
}

// DeleteBranch removes the local branch reference. The active branch cannot be deleted.
func (r *gitRepository) DeleteBranch(ctx context.Context, name string) error {
	current, err := r.CurrentBranch(ctx)
	if err == nil && current == name {
		return fmt.Errorf("cannot delete branch %s: it is checked out", name)
	}
	refName := plumbing.NewBranchReferenceName(name)
	if _, err := r.repo.Reference(refName, false); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return fmt.Errorf("branch %s not found", name)
		}
		return fmt.Errorf("failed to read branch %s: %w", name, err)
	}
	if err := r.repo.Storer.RemoveReference(refName); err != nil {
		return fmt.Errorf("failed to delete branch %s: %w", name, err)
	}
	return nil
}

// DeleteRemoteBranch deletes the branch on origin. A branch that is already gone is not an error.
func (r *gitRepository) DeleteRemoteBranch(ctx context.Context, name string) error {
	_, err := r.git(ctx, "push", "--no-verify", RemoteName, "--delete", name)
	if err != nil {
		var gitErr *GitCommandError
		if errors.As(err, &gitErr) && strings.Contains(gitErr.Stderr, "remote ref does not exist") {
			_ = r.repo.Storer.RemoveReference(plumbing.NewRemoteReferenceName(RemoteName, name))
			return nil
		}
		return fmt.Errorf("failed to delete remote branch %s: %w", name, err)
	}
	return nil
}

// ListLocalBranches returns a list of all local branch names.
func (r *gitRepository) ListLocalBranches(_ context.Context) ([]string, error) {
	iter, err := r.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	var branches []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		branches = append(branches, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate branches: %w", err)
	}
	sort.Strings(branches)
	return branches, nil
}

// ListRemoteBranches asks origin for its branch heads.
func (r *gitRepository) ListRemoteBranches(ctx context.Context) ([]string, error) {
	out, err := r.git(ctx, "ls-remote", "--heads", RemoteName)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote branches: %w", err)
	}
	var branches []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		branches = append(branches, strings.TrimPrefix(fields[1], "refs/heads/"))
	}
	sort.Strings(branches)
	return branches, nil
}
