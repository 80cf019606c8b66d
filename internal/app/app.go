// Package app wires configuration, repository inspection, publishing and the
// pipeline server client into the run and validate flows.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/t3-cicd/cicd/internal/git"
	gh "github.com/t3-cicd/cicd/internal/github"
	"github.com/t3-cicd/cicd/internal/printer"
	"github.com/t3-cicd/cicd/internal/publish"
	"github.com/t3-cicd/cicd/internal/repostate"
	"github.com/t3-cicd/cicd/internal/request"
	"github.com/t3-cicd/cicd/internal/settings"
	"github.com/t3-cicd/cicd/internal/transport"
)

// Resolver turns settings and flags into a server request.
type Resolver interface {
	ResolveRun(ctx context.Context, s settings.Settings, in request.RunInput) (request.Request, error)
	ResolveValidate(ctx context.Context, s settings.Settings, in request.ValidateInput) (request.Request, error)
}

// Poster delivers a request to the pipeline server.
type Poster interface {
	Post(ctx context.Context, endpoint string, payload any) (transport.Outcome, error)
}

// App executes the run and validate flows.
type App struct {
	cfg      Config
	log      zerolog.Logger
	resolver Resolver
	poster   Poster
}

// New constructs an App backed by the system git binary, the GitHub REST API
// and an HTTP client for the pipeline server.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*App, error) {
	hosting, err := gh.NewRESTFactory(cfg.GitHubAPIURL).New(ctx, cfg.GitHubToken)
	if err != nil {
		return nil, fmt.Errorf("initialize github client: %w", err)
	}

	return NewWithDeps(cfg, log, hosting, buildGitExecutor(cfg), transport.New(nil, log)), nil
}

// NewWithDeps constructs an App with injected dependencies for testing.
func NewWithDeps(cfg Config, log zerolog.Logger, hosting gh.Client, gitExec git.Executor, poster Poster) *App {
	oracle := repostate.New(gitExec, hosting, repostate.Options{HostPrefix: cfg.HostingPrefix}, log)
	publisher := publish.New(gitExec, publish.Options{
		StagingURL: cfg.StagingURL,
		RemoteName: cfg.StagingRemote,
	}, log)
	assembler := request.New(request.Config{DefaultConfigPath: cfg.DefaultConfigPath}, oracle, publisher, log)

	return &App{cfg: cfg, log: log, resolver: assembler, poster: poster}
}

func buildGitExecutor(cfg Config) git.Executor {
	exec := git.NewShellExecutor()
	exec.Git = cfg.GitBinary
	exec.UserName = cfg.GitUserName
	exec.UserEmail = cfg.GitUserEmail
	return exec
}

// RunPipeline starts a pipeline run. Only usage errors are returned; every
// other failure is reported to the user and treated as a completed command.
func (a *App) RunPipeline(ctx context.Context, s settings.Settings, in request.RunInput, dryRun bool) error {
	p := printer.Ctx(ctx)

	if dryRun {
		if err := request.CheckSelectors(in); err != nil {
			return err
		}
		p.Infof("Performing a dry run of the pipeline...")
		p.Infof("Dry run complete. No jobs were executed.")
		return nil
	}

	req, err := a.resolver.ResolveRun(ctx, s, in)
	if err != nil {
		return a.reportResolveError(p, err)
	}

	p.Infof("Executing the pipeline...")
	outcome, err := a.poster.Post(ctx, transport.Endpoint(s.ServerValue(), transport.RunPath), req)
	if err != nil {
		a.reportTransportError(p, err)
		return nil
	}

	if outcome.OK() {
		p.Successf("The Pipeline is successfully started.")
		return nil
	}
	a.log.Debug().Int("status", outcome.StatusCode).Msg("run rejected")
	p.Printf("%s", outcome)
	return nil
}

// ValidateConfig asks the server to validate a pipeline configuration file.
func (a *App) ValidateConfig(ctx context.Context, s settings.Settings, in request.ValidateInput) error {
	p := printer.Ctx(ctx)

	req, err := a.resolver.ResolveValidate(ctx, s, in)
	if err != nil {
		return a.reportResolveError(p, err)
	}

	outcome, err := a.poster.Post(ctx, transport.Endpoint(s.ServerValue(), transport.ValidatePath), req)
	if err != nil {
		a.reportTransportError(p, err)
		return nil
	}

	if outcome.OK() {
		p.Successf("The Config File is successfully validated.")
		return nil
	}
	a.log.Debug().Int("status", outcome.StatusCode).Msg("validation rejected")
	p.Printf("%s Validation failed.", outcome)
	return nil
}

func (a *App) reportResolveError(p *printer.Printer, err error) error {
	var usage *request.UsageError
	if errors.As(err, &usage) {
		return err
	}

	var pre *request.PreconditionError
	switch {
	case errors.As(err, &pre):
		p.Errorf("%s", pre.Msg)
	case errors.Is(err, request.ErrDirtyWorkingTree):
		// the oracle already listed the changes
	default:
		a.log.Error().Err(err).Msg("resolve request")
		p.Errorf("Unexpected error occurred - %v", err)
	}
	return nil
}

func (a *App) reportTransportError(p *printer.Printer, err error) {
	var terr *transport.Error
	if errors.As(err, &terr) {
		a.log.Warn().Err(err).Str("endpoint", terr.Endpoint).Msg("request failed")
		p.Errorf("An error occurred during the request - %v", err)
		return
	}
	a.log.Error().Err(err).Msg("post request")
	p.Errorf("Unexpected error occurred - %v", err)
}
