package git

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
)

// Fake is an in-memory Executor that records every call. It never touches the
// file system and is intended for tests that exercise code paths built on top
// of git.
type Fake struct {
	mu    sync.Mutex
	repos map[string]*FakeWorkspace

	// Calls lists every operation in order, e.g. "init /tmp/x" or "push cicd b".
	Calls []string

	// InitErr, when set, is returned by Init.
	InitErr error
}

// NewFake returns an empty Fake executor.
func NewFake() *Fake {
	return &Fake{repos: make(map[string]*FakeWorkspace)}
}

// AddRepo registers dir as an existing repository with the given status.
func (f *Fake) AddRepo(dir string, status Status) *FakeWorkspace {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws := &FakeWorkspace{fake: f, dir: filepath.Clean(dir), status: status, Remotes: map[string]string{}}
	f.repos[ws.dir] = ws
	return ws
}

// Repo returns the workspace registered for dir, or nil.
func (f *Fake) Repo(dir string) *FakeWorkspace {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.repos[filepath.Clean(dir)]
}

func (f *Fake) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

func (f *Fake) Open(ctx context.Context, dir string) (Workspace, error) {
	f.record("open %s", filepath.Clean(dir))
	if ws := f.Repo(dir); ws != nil {
		return ws, nil
	}
	return nil, ErrNotRepository
}

func (f *Fake) Init(ctx context.Context, dir string) (Workspace, error) {
	f.record("init %s", filepath.Clean(dir))
	if f.InitErr != nil {
		return nil, f.InitErr
	}
	if ws := f.Repo(dir); ws != nil {
		return ws, nil
	}
	return f.AddRepo(dir, Status{}), nil
}

// FakeWorkspace is the Workspace handed out by Fake.
type FakeWorkspace struct {
	fake   *Fake
	dir    string
	status Status

	Remotes  map[string]string
	Branches []string
	Commits  []string
	Pushed   []string

	// PushErr, when set, is returned by Push.
	PushErr error
}

func (w *FakeWorkspace) Dir() string {
	return w.dir
}

func (w *FakeWorkspace) Status(ctx context.Context) (Status, error) {
	w.fake.record("status %s", w.dir)
	return w.status, nil
}

func (w *FakeWorkspace) CommitAll(ctx context.Context, message string) error {
	w.fake.record("commit %s", message)
	w.Commits = append(w.Commits, message)
	w.status = Status{HasCommits: true}
	return nil
}

func (w *FakeWorkspace) EnsureRemote(ctx context.Context, name, url string) error {
	w.fake.record("remote %s %s", name, url)
	if _, ok := w.Remotes[name]; !ok {
		w.Remotes[name] = url
	}
	return nil
}

func (w *FakeWorkspace) CheckoutNewBranch(ctx context.Context, branch string) error {
	w.fake.record("checkout %s", branch)
	for _, b := range w.Branches {
		if b == branch {
			return fmt.Errorf("branch %s already exists", branch)
		}
	}
	w.Branches = append(w.Branches, branch)
	return nil
}

func (w *FakeWorkspace) Push(ctx context.Context, remote, branch string) error {
	w.fake.record("push %s %s", remote, branch)
	if w.PushErr != nil {
		return w.PushErr
	}
	if _, ok := w.Remotes[remote]; !ok {
		return fmt.Errorf("remote %s not configured", remote)
	}
	w.Pushed = append(w.Pushed, branch)
	return nil
}
