// Package repostate answers questions about the user's repository: whether a
// local path is a clean git work tree, and whether a hosted repository or one
// of its files exists.
package repostate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/t3-cicd/cicd/internal/git"
	gh "github.com/t3-cicd/cicd/internal/github"
	"github.com/t3-cicd/cicd/internal/printer"
)

// DefaultLookupTimeout bounds each hosting API lookup.
const DefaultLookupTimeout = 10 * time.Second

// Options tune an Oracle. Zero values select the defaults.
type Options struct {
	HostPrefix    string
	LookupTimeout time.Duration
}

// Oracle combines local git inspection with hosting API lookups. Every lookup
// fails closed: an error is reported as "does not exist".
type Oracle struct {
	git        git.Executor
	hosting    gh.Client
	hostPrefix string
	timeout    time.Duration
	log        zerolog.Logger
}

// New returns an Oracle.
func New(gitExec git.Executor, hosting gh.Client, opts Options, log zerolog.Logger) *Oracle {
	if opts.HostPrefix == "" {
		opts.HostPrefix = gh.DefaultHostPrefix
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = DefaultLookupTimeout
	}
	return &Oracle{
		git:        gitExec,
		hosting:    hosting,
		hostPrefix: opts.HostPrefix,
		timeout:    opts.LookupTimeout,
		log:        log.With().Str("component", "repostate").Logger(),
	}
}

// PathExists reports whether path exists on the local file system.
func (o *Oracle) PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LocalFileExists reports whether rel exists below root.
func (o *Oracle) LocalFileExists(root, rel string) bool {
	return o.PathExists(filepath.Join(root, rel))
}

// IsLocalGitRepo reports whether path is the top level of a git work tree.
func (o *Oracle) IsLocalGitRepo(ctx context.Context, path string) bool {
	_, err := o.git.Open(ctx, path)
	if err != nil {
		if !errors.Is(err, git.ErrNotRepository) {
			o.log.Debug().Err(err).Str("path", path).Msg("open repository failed")
		}
		return false
	}
	return true
}

// IsDirty reports whether the repository at path has staged, unstaged or
// untracked changes. A repository without commits is clean. When dirty, the
// offending paths are printed for the user.
func (o *Oracle) IsDirty(ctx context.Context, path string) (bool, error) {
	ws, err := o.git.Open(ctx, path)
	if err != nil {
		return false, err
	}

	status, err := ws.Status(ctx)
	if err != nil {
		return false, err
	}
	if !status.Dirty() {
		return false, nil
	}

	reportDirty(printer.Ctx(ctx), status)
	return true, nil
}

func reportDirty(p *printer.Printer, status git.Status) {
	p.Warnf("You have the following uncommitted changes. Please commit them before proceeding.")
	if len(status.Modified) > 0 {
		p.Printf("Changes not staged for commit:")
		for _, path := range status.Modified {
			p.Printf("      Modified:     %s", path)
		}
	}
	if len(status.Staged) > 0 {
		p.Printf("")
		p.Printf("Changes staged for commit:")
		for _, path := range status.Staged {
			p.Printf("      Staged:       %s", path)
		}
	}
	if len(status.Untracked) > 0 {
		p.Printf("")
		p.Printf("Untracked files:")
		for _, path := range status.Untracked {
			p.Printf("      Untracked:    %s", path)
		}
	}
}

// IsHostedRepo reports whether url names a repository under the hosting
// prefix that the API can see.
func (o *Oracle) IsHostedRepo(ctx context.Context, url string) bool {
	owner, repo, ok := gh.ParseHostedURL(o.hostPrefix, url)
	if !ok {
		o.log.Debug().Str("url", url).Str("prefix", o.hostPrefix).Msg("url is not a hosted repository url")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	exists, err := o.hosting.RepositoryExists(ctx, owner, repo)
	if err != nil {
		o.lookupFailed(err, url)
		return false
	}
	return exists
}

// FileExists reports whether path exists in the hosted repository at branch.
func (o *Oracle) FileExists(ctx context.Context, url, branch, path string) bool {
	owner, repo, ok := gh.SplitOwnerRepo(url)
	if !ok {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	exists, err := o.hosting.ContentExists(ctx, owner, repo, path, branch)
	if err != nil {
		o.lookupFailed(err, url)
		return false
	}
	return exists
}

func (o *Oracle) lookupFailed(err error, url string) {
	evt := o.log.Warn().Err(err).Str("url", url)
	switch {
	case gh.IsRateLimited(err):
		evt.Msg("hosting api rate limit reached; set CICD_GITHUB_TOKEN to raise it")
	case gh.IsRetryable(err):
		evt.Msg("hosting api lookup failed with a transient error")
	default:
		evt.Msg("hosting api lookup failed")
	}
}
