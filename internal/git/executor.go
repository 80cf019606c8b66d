package git

import (
	"context"
	"errors"
)

// ErrNotRepository is returned by Executor.Open when the directory is not the
// top level of a git work tree.
var ErrNotRepository = errors.New("git: not a repository")

// Executor opens or initialises repositories on the local file system.
type Executor interface {
	Open(ctx context.Context, dir string) (Workspace, error)
	Init(ctx context.Context, dir string) (Workspace, error)
}

// Workspace exposes the git primitives needed to inspect a working tree and
// publish it to a staging remote. Implementations may shell out to git or keep
// state in memory.
type Workspace interface {
	Dir() string
	Status(ctx context.Context) (Status, error)
	CommitAll(ctx context.Context, message string) error
	EnsureRemote(ctx context.Context, name, url string) error
	CheckoutNewBranch(ctx context.Context, branch string) error
	Push(ctx context.Context, remote, branch string) error
}

// Status summarises the working tree relative to HEAD and the index.
type Status struct {
	HasCommits bool
	Staged     []string
	Modified   []string
	Untracked  []string
}

// Dirty reports whether any staged, unstaged or untracked entries exist. A
// repository without commits is never considered dirty.
func (s Status) Dirty() bool {
	if !s.HasCommits {
		return false
	}
	return len(s.Staged) > 0 || len(s.Modified) > 0 || len(s.Untracked) > 0
}
