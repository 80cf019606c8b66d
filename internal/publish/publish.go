// Package publish pushes a local working tree to the shared staging repository
// under a freshly generated branch so the pipeline server can fetch it.
package publish

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/t3-cicd/cicd/internal/git"
)

const (
	// DefaultStagingURL is the repository local work is published to.
	DefaultStagingURL = "https://github.com/wp161/cicd-localrepo.git"
	// DefaultRemoteName is the remote added to the local repository.
	DefaultRemoteName = "cicd"

	initialCommitMessage = "Initial commit"
)

// Options configure a Publisher. Zero values select the defaults.
type Options struct {
	StagingURL string
	RemoteName string
	// Now is the clock used for branch names.
	Now func() time.Time
}

// Publisher implements the publish step of a local pipeline run.
type Publisher struct {
	git        git.Executor
	stagingURL string
	remoteName string
	now        func() time.Time
	log        zerolog.Logger
}

// New returns a Publisher using gitExec for all repository operations.
func New(gitExec git.Executor, opts Options, log zerolog.Logger) *Publisher {
	if opts.StagingURL == "" {
		opts.StagingURL = DefaultStagingURL
	}
	if opts.RemoteName == "" {
		opts.RemoteName = DefaultRemoteName
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Publisher{
		git:        gitExec,
		stagingURL: opts.StagingURL,
		remoteName: opts.RemoteName,
		now:        opts.Now,
		log:        log.With().Str("component", "publish").Logger(),
	}
}

// StagingURL returns the repository URL branches are pushed to.
func (p *Publisher) StagingURL() string {
	return p.stagingURL
}

// Publish pushes the repository at path to the staging remote and returns the
// new branch name. A directory that is not yet a repository is initialised and
// committed first. Failures are not retried.
func (p *Publisher) Publish(ctx context.Context, path string) (string, error) {
	branch := BranchName(path, p.now())

	ws, err := p.git.Open(ctx, path)
	if errors.Is(err, git.ErrNotRepository) {
		p.log.Debug().Str("path", path).Msg("initialising repository")
		ws, err = p.git.Init(ctx, path)
		if err != nil {
			return "", fmt.Errorf("initialise repository: %w", err)
		}
		if err := ws.CommitAll(ctx, initialCommitMessage); err != nil {
			return "", fmt.Errorf("create initial commit: %w", err)
		}
	} else if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}

	if err := ws.EnsureRemote(ctx, p.remoteName, p.stagingURL); err != nil {
		return "", fmt.Errorf("configure remote %s: %w", p.remoteName, err)
	}
	if err := ws.CheckoutNewBranch(ctx, branch); err != nil {
		return "", fmt.Errorf("create branch %s: %w", branch, err)
	}
	if err := ws.Push(ctx, p.remoteName, branch); err != nil {
		return "", fmt.Errorf("push branch %s: %w", branch, err)
	}

	p.log.Debug().Str("path", path).Str("branch", branch).Str("remote", p.stagingURL).Msg("published working tree")
	return branch, nil
}

// BranchName derives the staging branch name from the repository path and the
// current time: the decimal FNV-1a 64-bit hash of path followed by the Unix
// time in nanoseconds. Names are not checked for collisions.
func BranchName(path string, t time.Time) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path + strconv.FormatInt(t.UnixNano(), 10)))
	return strconv.FormatUint(h.Sum64(), 10)
}
