package app

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/hay-kot/criterio"

	gh "github.com/t3-cicd/cicd/internal/github"
	"github.com/t3-cicd/cicd/internal/publish"
	"github.com/t3-cicd/cicd/internal/request"
)

const (
	defaultGitBinary    = "git"
	defaultGitUserName  = "CICD CLI"
	defaultGitUserEmail = "cicd-cli@users.noreply.github.com"
)

// Config captures process options sourced from environment variables.
type Config struct {
	GitHubToken       string
	GitHubAPIURL      string
	HostingPrefix     string
	StagingURL        string
	StagingRemote     string
	DefaultConfigPath string
	GitBinary         string
	GitUserName       string
	GitUserEmail      string
}

// LoadConfig reads the environment, applies defaults, and performs validation.
func LoadConfig() (Config, error) {
	cfg := Config{
		HostingPrefix:     envOrDefault("CICD_HOSTING_PREFIX", gh.DefaultHostPrefix),
		StagingURL:        envOrDefault("CICD_STAGING_URL", publish.DefaultStagingURL),
		StagingRemote:     envOrDefault("CICD_STAGING_REMOTE", publish.DefaultRemoteName),
		DefaultConfigPath: envOrDefault("CICD_DEFAULT_CONFIG", request.DefaultConfigPath),
		GitBinary:         envOrDefault("CICD_GIT", defaultGitBinary),
		GitUserName:       envOrDefault("CICD_GIT_USER_NAME", defaultGitUserName),
		GitUserEmail:      envOrDefault("CICD_GIT_USER_EMAIL", defaultGitUserEmail),
	}

	cfg.GitHubToken = strings.TrimSpace(os.Getenv("CICD_GITHUB_TOKEN"))
	if cfg.GitHubToken == "" {
		cfg.GitHubToken = strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
	}

	cfg.GitHubAPIURL = strings.TrimSpace(os.Getenv("CICD_GITHUB_API_URL"))

	if !strings.HasSuffix(cfg.HostingPrefix, "/") {
		cfg.HostingPrefix += "/"
	}

	checks := []error{
		criterio.Run("CICD_HOSTING_PREFIX", cfg.HostingPrefix, absoluteHTTPURL),
		criterio.Run("CICD_STAGING_URL", cfg.StagingURL, absoluteHTTPURL),
	}
	if cfg.GitHubAPIURL != "" {
		checks = append(checks, criterio.Run("CICD_GITHUB_API_URL", cfg.GitHubAPIURL, absoluteHTTPURL))
	}
	if strings.ContainsAny(cfg.StagingRemote, " \t\n") {
		checks = append(checks, criterio.NewFieldErrors("CICD_STAGING_REMOTE", fmt.Errorf("remote name cannot contain whitespace")))
	}
	if err := criterio.ValidateStruct(checks...); err != nil {
		return Config{}, fmt.Errorf("invalid environment: %w", err)
	}

	return cfg, nil
}

func absoluteHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must start with http:// or https://")
	}
	if u.Host == "" {
		return fmt.Errorf("url must include a host")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
