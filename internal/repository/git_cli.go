package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultGitTimeout bounds a single git invocation.
const DefaultGitTimeout = 2 * time.Minute

// CommandRunner executes git with args inside dir and returns trimmed stdout.
type CommandRunner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// GitCommandError carries the stderr of a failed git invocation.
type GitCommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *GitCommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("git %s: %s", strings.Join(e.Args, " "), msg)
}

func (e *GitCommandError) Unwrap() error { return e.Err }

type gitCLI struct {
	binary  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewGitCLI returns a runner backed by the git binary on PATH.
func NewGitCLI(logger *zap.Logger) CommandRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &gitCLI{binary: "git", timeout: DefaultGitTimeout, logger: logger}
}

func (g *gitCLI) Run(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, g.binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	start := time.Now()
	err := cmd.Run()
	g.logger.Debug("git",
		zap.Strings("args", args),
		zap.Duration("duration", time.Since(start)),
		zap.String("stderr", strings.TrimSpace(stderr.String())),
		zap.Error(err),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", g.timeout, err)
		}
		return "", &GitCommandError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}
