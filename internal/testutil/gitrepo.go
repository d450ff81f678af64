// Package testutil builds throwaway git repositories for tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// SampleBlueprint is the definition written to blueprints/demo.yaml.
const SampleBlueprint = `clouds:
  - AWS: eu-west-1
artifacts:
  - api: artifacts/api.tar.gz
inputs:
  - size: small
  - region:
      default_value: eu-west-1
  - secret
`

// GitRepo is a work tree whose origin is a local bare repository.
type GitRepo struct {
	T      *testing.T
	Dir    string
	Remote string
	Branch string
}

// RequireGit skips the test when no git binary is available.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

// Git runs git in dir and fails the test on error.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// NewGitRepo creates a committed blueprint repo pushed to a bare origin.
func NewGitRepo(t *testing.T) *GitRepo {
	t.Helper()
	RequireGit(t)
	remote := filepath.Join(t.TempDir(), "origin.git")
	Git(t, filepath.Dir(remote), "init", "-q", "--bare", remote)
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolve temp dir: %v", err)
	}
	Git(t, dir, "-c", "init.defaultBranch=main", "init", "-q")
	Git(t, dir, "config", "user.email", "test@example.com")
	Git(t, dir, "config", "user.name", "Test User")
	Git(t, dir, "config", "commit.gpgsign", "false")
	r := &GitRepo{T: t, Dir: dir, Remote: remote}
	r.WriteFile("README.md", "# blueprints\n")
	r.WriteFile(filepath.Join("blueprints", "demo.yaml"), SampleBlueprint)
	r.Git("add", "-A")
	r.Git("commit", "-q", "-m", "initial")
	r.Git("remote", "add", "origin", remote)
	r.Branch = r.Git("rev-parse", "--abbrev-ref", "HEAD")
	r.Git("push", "-q", "origin", r.Branch)
	return r
}

// Git runs git inside the work tree.
func (r *GitRepo) Git(args ...string) string {
	r.T.Helper()
	return Git(r.T, r.Dir, args...)
}

// WriteFile writes content to a path relative to the work tree.
func (r *GitRepo) WriteFile(rel, content string) {
	r.T.Helper()
	path := filepath.Join(r.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.T.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.T.Fatal(err)
	}
}

// ReadFile reads a path relative to the work tree.
func (r *GitRepo) ReadFile(rel string) string {
	r.T.Helper()
	data, err := os.ReadFile(filepath.Join(r.Dir, rel))
	if err != nil {
		r.T.Fatal(err)
	}
	return string(data)
}

// Exists reports whether rel exists in the work tree.
func (r *GitRepo) Exists(rel string) bool {
	_, err := os.Stat(filepath.Join(r.Dir, rel))
	return err == nil
}

// MakeDirty modifies the tracked README and stages the change.
func (r *GitRepo) MakeDirty() {
	r.T.Helper()
	r.WriteFile("README.md", "# blueprints\nlocal edit\n")
	r.Git("add", "README.md")
}

// AddUntracked creates an untracked file.
func (r *GitRepo) AddUntracked() {
	r.T.Helper()
	r.WriteFile("untracked.txt", "new file\n")
}

// CommitLocally creates a commit that is not pushed.
func (r *GitRepo) CommitLocally(msg string) {
	r.T.Helper()
	r.WriteFile("local.txt", msg+"\n")
	r.Git("add", "local.txt")
	r.Git("commit", "-q", "-m", msg)
}

// Status returns porcelain status including untracked files.
func (r *GitRepo) Status() string {
	r.T.Helper()
	return r.Git("status", "--porcelain", "--untracked-files=all")
}

// CurrentBranch returns the checked out branch.
func (r *GitRepo) CurrentBranch() string {
	r.T.Helper()
	return r.Git("rev-parse", "--abbrev-ref", "HEAD")
}

// StashCount returns the number of stash entries.
func (r *GitRepo) StashCount() int {
	r.T.Helper()
	return strings.Count(r.Git("stash", "list"), "stash@")
}

// LocalBranches lists local branch names.
func (r *GitRepo) LocalBranches() []string {
	r.T.Helper()
	return splitLines(r.Git("for-each-ref", "--format=%(refname:short)", "refs/heads"))
}

// RemoteBranches lists branch names present in the bare origin.
func (r *GitRepo) RemoteBranches() []string {
	r.T.Helper()
	return splitLines(Git(r.T, r.Remote, "for-each-ref", "--format=%(refname:short)", "refs/heads"))
}

// RemoteFile reads rel from branch in the bare origin.
func (r *GitRepo) RemoteFile(branch, rel string) string {
	r.T.Helper()
	return Git(r.T, r.Remote, "show", branch+":"+rel)
}

// UntrackedFiles lists untracked paths.
func (r *GitRepo) UntrackedFiles() []string {
	r.T.Helper()
	return splitLines(r.Git("ls-files", "--others", "--exclude-standard"))
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	sort.Strings(lines)
	return lines
}
