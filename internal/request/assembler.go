// Package request validates what a run or validate invocation asks for and
// assembles the payload sent to the pipeline server.
package request

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/t3-cicd/cicd/internal/settings"
)

// Request is the payload posted to the pipeline server. Empty fields are
// omitted from the JSON encoding.
type Request struct {
	RepoURL      string            `json:"repo_url,omitempty"`
	Branch       string            `json:"branch,omitempty"`
	Commit       string            `json:"commit,omitempty"`
	Override     map[string]string `json:"override,omitempty"`
	ConfigPath   string            `json:"config_path,omitempty"`
	PipelineName string            `json:"pipeline_name,omitempty"`
}

// RunInput holds the flags of a run invocation.
type RunInput struct {
	File      string
	Pipeline  string
	Commit    string
	Overrides []string
}

// ValidateInput holds the flags of a validate invocation.
type ValidateInput struct {
	File string
}

// Oracle answers repository state questions.
type Oracle interface {
	PathExists(path string) bool
	LocalFileExists(root, rel string) bool
	IsLocalGitRepo(ctx context.Context, path string) bool
	IsDirty(ctx context.Context, path string) (bool, error)
	IsHostedRepo(ctx context.Context, url string) bool
	FileExists(ctx context.Context, url, branch, path string) bool
}

// Publisher pushes a local working tree to the staging repository.
type Publisher interface {
	Publish(ctx context.Context, path string) (string, error)
	StagingURL() string
}

// Assembler turns settings and flags into a Request, aborting on the first
// failed precondition. Checks run in a fixed order and later checks assume
// earlier ones passed.
type Assembler struct {
	cfg       Config
	oracle    Oracle
	publisher Publisher
	log       zerolog.Logger
}

// New returns an Assembler.
func New(cfg Config, oracle Oracle, publisher Publisher, log zerolog.Logger) *Assembler {
	return &Assembler{
		cfg:       cfg,
		oracle:    oracle,
		publisher: publisher,
		log:       log.With().Str("component", "request").Logger(),
	}
}

// CheckSelectors rejects a run that names both a config file and a pipeline.
func CheckSelectors(in RunInput) error {
	if strings.TrimSpace(in.File) != "" && strings.TrimSpace(in.Pipeline) != "" {
		return &UsageError{Msg: "Specify either --file or --pipeline, but not both."}
	}
	return nil
}

// ResolveRun validates a run invocation and returns the payload for
// /pipeline/run.
func (a *Assembler) ResolveRun(ctx context.Context, s settings.Settings, in RunInput) (Request, error) {
	if err := CheckSelectors(in); err != nil {
		return Request{}, err
	}

	overrides, err := ParseOverrides(in.Overrides...)
	if err != nil {
		return Request{}, err
	}

	file := strings.TrimSpace(in.File)
	pipeline := strings.TrimSpace(in.Pipeline)

	t, err := a.resolveTarget(ctx, s, file)
	if err != nil {
		return Request{}, err
	}

	req := Request{
		RepoURL:  t.repoURL,
		Branch:   t.branch,
		Commit:   strings.TrimSpace(in.Commit),
		Override: overrides,
	}

	if pipeline != "" {
		req.PipelineName = pipeline
		a.log.Debug().Str("pipeline", pipeline).Msg("pipeline selected by name")
		return req, nil
	}

	req.ConfigPath, err = a.resolveConfigPath(ctx, t, file)
	if err != nil {
		return Request{}, err
	}
	return req, nil
}

// ResolveValidate validates a validate invocation and returns the payload for
// /validate. A config path is always resolved.
func (a *Assembler) ResolveValidate(ctx context.Context, s settings.Settings, in ValidateInput) (Request, error) {
	file := strings.TrimSpace(in.File)

	t, err := a.resolveTarget(ctx, s, file)
	if err != nil {
		return Request{}, err
	}

	configPath, err := a.resolveConfigPath(ctx, t, file)
	if err != nil {
		return Request{}, err
	}

	return Request{
		RepoURL:    t.repoURL,
		Branch:     t.branch,
		ConfigPath: configPath,
	}, nil
}

type target struct {
	remote bool
	// root is the configured repository: a URL when remote, a path otherwise.
	root    string
	repoURL string
	branch  string
}

func (a *Assembler) resolveTarget(ctx context.Context, s settings.Settings, file string) (target, error) {
	repo := strings.TrimSpace(s.RepoValue())
	if repo == "" {
		return target{}, preconditionf("The path/URL of the repo cannot be null. Please configure it with cicd config set --repo.")
	}
	if strings.TrimSpace(s.ServerValue()) == "" {
		return target{}, preconditionf("The pipeline server cannot be null. Please configure it with cicd config set --server.")
	}

	if s.IsRepoRemote {
		return a.resolveRemote(ctx, repo, s.Branch, file)
	}
	return a.resolveLocal(ctx, repo, file)
}

func (a *Assembler) resolveRemote(ctx context.Context, repo, branch, file string) (target, error) {
	if !a.oracle.IsHostedRepo(ctx, repo) {
		return target{}, preconditionf("Provided repo %s is not a valid public remote Git repo.", repo)
	}
	if file != "" && !a.oracle.FileExists(ctx, repo, branch, file) {
		return target{}, preconditionf("Cannot find file %s in given repo %s in %s branch.", file, repo, branch)
	}

	a.log.Debug().Str("repo", repo).Str("branch", branch).Msg("using remote repository")
	return target{remote: true, root: repo, repoURL: repo, branch: branch}, nil
}

func (a *Assembler) resolveLocal(ctx context.Context, repo, file string) (target, error) {
	if !a.oracle.PathExists(repo) {
		return target{}, preconditionf("The path of the repo %s does not exist in the local file system. Please check again.", repo)
	}
	if file != "" && !a.oracle.LocalFileExists(repo, file) {
		return target{}, preconditionf("The file '%s' does not exist in the project root %s. Please check again.", file, repo)
	}

	if a.oracle.IsLocalGitRepo(ctx, repo) {
		dirty, err := a.oracle.IsDirty(ctx, repo)
		if err != nil {
			return target{}, fmt.Errorf("inspect working tree: %w", err)
		}
		if dirty {
			return target{}, ErrDirtyWorkingTree
		}
	}

	branch, err := a.publisher.Publish(ctx, repo)
	if err != nil {
		return target{}, fmt.Errorf("publish %s: %w", repo, err)
	}

	a.log.Debug().Str("path", repo).Str("branch", branch).Msg("published local repository")
	return target{root: repo, repoURL: a.publisher.StagingURL(), branch: branch}, nil
}

func (a *Assembler) resolveConfigPath(ctx context.Context, t target, file string) (string, error) {
	if file != "" {
		return file, nil
	}

	path := a.cfg.defaultConfigPath()
	if t.remote {
		if !a.oracle.FileExists(ctx, t.root, t.branch, path) {
			return "", preconditionf("Cannot find the default config %s in given repo %s in %s branch.", path, t.root, t.branch)
		}
		return path, nil
	}

	if !a.oracle.LocalFileExists(t.root, path) {
		return "", preconditionf("The default config '%s' does not exist in the project root %s. Please check again.", path, t.root)
	}
	return path, nil
}
