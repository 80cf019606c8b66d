package commands

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t3-cicd/cicd/internal/app"
	"github.com/t3-cicd/cicd/internal/git"
	gh "github.com/t3-cicd/cicd/internal/github"
	"github.com/t3-cicd/cicd/internal/request"
	"github.com/t3-cicd/cicd/internal/settings"
	"github.com/t3-cicd/cicd/internal/transport"
)

type stubHosting struct {
	calls int
}

func (s *stubHosting) RepositoryExists(ctx context.Context, owner, repo string) (bool, error) {
	s.calls++
	return owner == "octo" && repo == "app", nil
}

func (s *stubHosting) ContentExists(ctx context.Context, owner, repo, path, ref string) (bool, error) {
	s.calls++
	return path == request.DefaultConfigPath || path == "ci/build.yml", nil
}

type recordedRequest struct {
	path string
	body map[string]any
}

func newServer(t *testing.T, requests *[]recordedRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(data, &body)
		*requests = append(*requests, recordedRequest{path: r.URL.Path, body: body})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestApp(server *httptest.Server, hosting gh.Client) *app.App {
	cfg := app.Config{
		HostingPrefix:     gh.DefaultHostPrefix,
		StagingURL:        "https://github.com/wp161/cicd-localrepo.git",
		StagingRemote:     "cicd",
		DefaultConfigPath: request.DefaultConfigPath,
	}
	var poster *transport.Client
	if server != nil {
		poster = transport.New(server.Client(), zerolog.Nop())
	} else {
		poster = transport.New(nil, zerolog.Nop())
	}
	return app.NewWithDeps(cfg, zerolog.Nop(), hosting, git.NewFake(), poster)
}

func configureRemote(t *testing.T, flags *Flags, server string) {
	t.Helper()
	remote := true
	repo := "https://github.com/octo/app"
	require.NoError(t, flags.Settings.Update(settings.Update{IsRepoRemote: &remote, Repo: &repo, Server: &server}))
}

func TestRunRejectsFileAndPipeline(t *testing.T) {
	flags := newTestFlags(t)
	hosting := &stubHosting{}
	cmd := NewRunCmd(flags, newTestApp(nil, hosting))

	out, err := runCLI(t, []string{"run", "--file", "a.yml", "--pipeline", "build"}, cmd)
	requireUsageExit(t, err, "Specify either --file or --pipeline, but not both.")
	assert.Empty(t, out)
	assert.Zero(t, hosting.calls)
}

func TestRunSelectorConflictLeavesSettingsUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cicd", "config.json")
	flags := &Flags{SettingsPath: path}
	cmd := NewRunCmd(flags, newTestApp(nil, &stubHosting{}))

	_, err := runCLI(t, []string{"run", "--file", "a.yml", "--pipeline", "build"}, cmd)
	requireUsageExit(t, err, "Specify either --file or --pipeline, but not both.")

	_, statErr := os.Stat(path)
	assert.ErrorIs(t, statErr, fs.ErrNotExist)
	assert.Nil(t, flags.Settings)
}

func TestRunLoadsSettingsOnDemand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cicd", "config.json")
	flags := &Flags{SettingsPath: path}
	cmd := NewRunCmd(flags, newTestApp(nil, &stubHosting{}))

	_, err := runCLI(t, []string{"run", "--dry-run"}, cmd)
	require.NoError(t, err)
	require.NotNil(t, flags.Settings)
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestRunDryRun(t *testing.T) {
	flags := newTestFlags(t)
	hosting := &stubHosting{}
	cmd := NewRunCmd(flags, newTestApp(nil, hosting))

	out, err := runCLI(t, []string{"run", "--dry-run"}, cmd)
	require.NoError(t, err)
	assert.Equal(t, "Performing a dry run of the pipeline...\nDry run complete. No jobs were executed.\n", out)
	assert.Zero(t, hosting.calls)
}

func TestRunRemotePipelineWithOverrides(t *testing.T) {
	var requests []recordedRequest
	server := newServer(t, &requests)
	flags := newTestFlags(t)
	configureRemote(t, flags, server.URL)
	cmd := NewRunCmd(flags, newTestApp(server, &stubHosting{}))

	out, err := runCLI(t, []string{
		"run",
		"--pipeline", "build",
		"--commit", "abc123",
		"--override", "image=golang,timeout=30",
		"--override", "image=alpine",
	}, cmd)
	require.NoError(t, err)

	require.Len(t, requests, 1)
	assert.Equal(t, transport.RunPath, requests[0].path)
	assert.Equal(t, map[string]any{
		"repo_url":      "https://github.com/octo/app",
		"branch":        "main",
		"commit":        "abc123",
		"pipeline_name": "build",
		"override":      map[string]any{"image": "alpine", "timeout": "30"},
	}, requests[0].body)
	assert.Equal(t, "Executing the pipeline...\nThe Pipeline is successfully started.\n", out)
}

func TestRunRejectsMalformedOverride(t *testing.T) {
	flags := newTestFlags(t)
	configureRemote(t, flags, "http://localhost:1")
	hosting := &stubHosting{}
	cmd := NewRunCmd(flags, newTestApp(nil, hosting))

	_, err := runCLI(t, []string{"run", "--override", "image"}, cmd)

	var exitErr interface{ ExitCode() int }
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, UsageExitCode, exitErr.ExitCode())
	assert.Zero(t, hosting.calls)
}

func TestRunWithoutRepoPrintsError(t *testing.T) {
	flags := newTestFlags(t)
	hosting := &stubHosting{}
	cmd := NewRunCmd(flags, newTestApp(nil, hosting))

	out, err := runCLI(t, []string{"run"}, cmd)
	require.NoError(t, err)
	assert.Equal(t, "Error: The path/URL of the repo cannot be null. Please configure it with cicd config set --repo.\n", out)
	assert.Zero(t, hosting.calls)
}

func TestValidateRemoteDefaultConfig(t *testing.T) {
	var requests []recordedRequest
	server := newServer(t, &requests)
	flags := newTestFlags(t)
	configureRemote(t, flags, server.URL)
	cmd := NewValidateCmd(flags, newTestApp(server, &stubHosting{}))

	out, err := runCLI(t, []string{"validate"}, cmd)
	require.NoError(t, err)

	require.Len(t, requests, 1)
	assert.Equal(t, transport.ValidatePath, requests[0].path)
	assert.Equal(t, map[string]any{
		"repo_url":    "https://github.com/octo/app",
		"branch":      "main",
		"config_path": request.DefaultConfigPath,
	}, requests[0].body)
	assert.Equal(t, "The Config File is successfully validated.\n", out)
}

func TestValidateMissingFile(t *testing.T) {
	var requests []recordedRequest
	server := newServer(t, &requests)
	flags := newTestFlags(t)
	configureRemote(t, flags, server.URL)
	cmd := NewValidateCmd(flags, newTestApp(server, &stubHosting{}))

	out, err := runCLI(t, []string{"validate", "--file", "missing.yml"}, cmd)
	require.NoError(t, err)
	assert.Empty(t, requests)
	assert.Equal(t, "Error: Cannot find file missing.yml in given repo https://github.com/octo/app in main branch.\n", out)
}
