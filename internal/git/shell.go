package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ShellExecutor shells out to the system git binary.
type ShellExecutor struct {
	// Git is the git binary to execute. Defaults to "git" when empty.
	Git string

	// UserName and UserEmail, when set, are passed as -c overrides on commits so
	// publishing works on machines without a global git identity.
	UserName  string
	UserEmail string

	// NetworkTimeout bounds network commands that would otherwise inherit an unbounded
	// context. When zero, a default of 2 minutes is used.
	NetworkTimeout time.Duration
}

// NewShellExecutor returns an Executor backed by system git commands.
func NewShellExecutor() *ShellExecutor {
	return &ShellExecutor{}
}

func (e *ShellExecutor) gitBinary() string {
	if e.Git == "" {
		return "git"
	}
	return e.Git
}

// Open returns a workspace for dir when dir is the top level of a work tree.
// Subdirectories of a repository are reported as ErrNotRepository.
func (e *ShellExecutor) Open(ctx context.Context, dir string) (Workspace, error) {
	abs, err := canonicalPath(dir)
	if err != nil {
		return nil, err
	}

	out, err := e.captureGitOutput(ctx, "-C", abs, "rev-parse", "--show-toplevel")
	if err != nil {
		var gitErr *GitError
		if errors.As(err, &gitErr) {
			return nil, ErrNotRepository
		}
		return nil, err
	}

	top, err := canonicalPath(strings.TrimSpace(out))
	if err != nil {
		return nil, err
	}
	if top != abs {
		return nil, ErrNotRepository
	}

	return &shellWorkspace{executor: e, path: abs}, nil
}

// Init runs git init in dir, creating it when needed.
func (e *ShellExecutor) Init(ctx context.Context, dir string) (Workspace, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create repository dir: %w", err)
	}
	abs, err := canonicalPath(dir)
	if err != nil {
		return nil, err
	}
	if err := e.runGit(ctx, "-C", abs, "init"); err != nil {
		return nil, fmt.Errorf("git init: %w", err)
	}
	return &shellWorkspace{executor: e, path: abs}, nil
}

func canonicalPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return filepath.Clean(abs), nil
}

type shellWorkspace struct {
	path     string
	executor *ShellExecutor
}

func (w *shellWorkspace) Dir() string {
	return w.path
}

func (w *shellWorkspace) Status(ctx context.Context) (Status, error) {
	var status Status

	if _, err := w.capture(ctx, "rev-parse", "--verify", "--quiet", "HEAD"); err == nil {
		status.HasCommits = true
	} else {
		var gitErr *GitError
		if !errors.As(err, &gitErr) {
			return Status{}, err
		}
	}

	out, err := w.capture(ctx, "status", "--porcelain=v1", "-z", "--untracked-files=all")
	if err != nil {
		return Status{}, fmt.Errorf("git status: %w", err)
	}

	status.Staged, status.Modified, status.Untracked = parsePorcelain(out)
	return status, nil
}

// parsePorcelain splits `git status --porcelain=v1 -z` output into staged,
// modified and untracked paths. Rename and copy entries carry the original path
// as an extra NUL separated field which is skipped.
func parsePorcelain(out string) (staged, modified, untracked []string) {
	entries := strings.Split(out, "\x00")
	for i := 0; i < len(entries); i++ {
		entry := entries[i]
		if len(entry) < 4 {
			continue
		}
		x, y, path := entry[0], entry[1], entry[3:]

		if x == '?' && y == '?' {
			untracked = append(untracked, path)
			continue
		}
		if x == '!' {
			continue
		}
		if x != ' ' {
			staged = append(staged, path)
		}
		if y != ' ' {
			modified = append(modified, path)
		}
		if x == 'R' || x == 'C' {
			i++
		}
	}
	return staged, modified, untracked
}

func (w *shellWorkspace) CommitAll(ctx context.Context, message string) error {
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = "Initial commit"
	}
	if err := w.exec(ctx, "add", "--all"); err != nil {
		return fmt.Errorf("git add: %w", err)
	}
	args := append(w.identityArgs(), "commit", "--allow-empty", "-m", msg)
	if err := w.exec(ctx, args...); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	return nil
}

func (w *shellWorkspace) identityArgs() []string {
	var args []string
	if w.executor.UserName != "" {
		args = append(args, "-c", "user.name="+w.executor.UserName)
	}
	if w.executor.UserEmail != "" {
		args = append(args, "-c", "user.email="+w.executor.UserEmail)
	}
	return args
}

// EnsureRemote adds the named remote unless one with that name already exists.
// An existing remote keeps its URL.
func (w *shellWorkspace) EnsureRemote(ctx context.Context, name, url string) error {
	if _, err := w.capture(ctx, "remote", "get-url", name); err == nil {
		return nil
	}
	if err := w.exec(ctx, "remote", "add", name, url); err != nil {
		return fmt.Errorf("git remote add %s: %w", name, err)
	}
	return nil
}

func (w *shellWorkspace) CheckoutNewBranch(ctx context.Context, branch string) error {
	if err := w.exec(ctx, "checkout", "-b", branch); err != nil {
		return fmt.Errorf("git checkout -b %s: %w", branch, err)
	}
	return nil
}

func (w *shellWorkspace) Push(ctx context.Context, remote, branch string) error {
	if err := w.exec(ctx, "push", remote, fmt.Sprintf("%s:%s", branch, branch)); err != nil {
		return fmt.Errorf("git push %s %s: %w", remote, branch, err)
	}
	return nil
}

func (w *shellWorkspace) exec(ctx context.Context, args ...string) error {
	cmd := append([]string{"-C", w.path}, args...)
	return w.executor.runGit(ctx, cmd...)
}

func (w *shellWorkspace) capture(ctx context.Context, args ...string) (string, error) {
	cmd := append([]string{"-C", w.path}, args...)
	return w.executor.captureGitOutput(ctx, cmd...)
}

func (e *ShellExecutor) captureGitOutput(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, e.gitBinary(), args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &GitError{Args: args, Output: string(output) + stderr.String(), Err: err}
	}
	return string(output), nil
}

// runGit runs git once. Network commands without a caller deadline are bounded
// by NetworkTimeout; a failed push is never retried.
func (e *ShellExecutor) runGit(ctx context.Context, args ...string) error {
	ctx, cancel := e.applyNetworkTimeout(ctx, isNetworkCommand(primaryGitCommand(args)))
	defer cancel()
	return e.runGitOnce(ctx, args...)
}

func (e *ShellExecutor) runGitOnce(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, e.gitBinary(), args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	setProcessGroup(cmd)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Start(); err != nil {
		return &GitError{Args: args, Output: output.String(), Err: err}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		terminateProcessGroup(cmd)
		<-done
		return ctx.Err()
	case err := <-done:
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return &GitError{Args: args, Output: output.String(), Err: err}
		}
	}

	return nil
}

func primaryGitCommand(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			if i+1 < len(args) {
				return args[i+1]
			}
			return ""
		}
		if strings.HasPrefix(arg, "-") {
			switch arg {
			case "-C", "--git-dir", "-c":
				i++
			}
			continue
		}
		return arg
	}
	return ""
}

func isNetworkCommand(cmd string) bool {
	switch cmd {
	case "clone", "fetch", "push", "pull":
		return true
	default:
		return false
	}
}

func (e *ShellExecutor) networkTimeoutValue() time.Duration {
	if e.NetworkTimeout <= 0 {
		return 2 * time.Minute
	}
	return e.NetworkTimeout
}

func (e *ShellExecutor) applyNetworkTimeout(ctx context.Context, network bool) (context.Context, context.CancelFunc) {
	if !network {
		return ctx, func() {}
	}
	if deadline, ok := ctx.Deadline(); ok && !deadline.IsZero() {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.networkTimeoutValue())
}

// GitError wraps failures when invoking the git binary.
type GitError struct {
	Args   []string
	Output string
	Err    error
}

func (e *GitError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("git %s: %v\n%s", strings.Join(e.Args, " "), e.Err, e.Output)
}

func (e *GitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
