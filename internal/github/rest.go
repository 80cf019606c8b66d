package gh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	github "github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"
)

const defaultUserAgent = "t3-cicd-cli"

// NewRESTFactory returns a client factory backed by the go-github REST client.
// When baseURL is provided the factory targets a GitHub Enterprise instance (or
// a test server) instead of api.github.com.
func NewRESTFactory(baseURL string) Factory {
	return &restFactory{
		userAgent: defaultUserAgent,
		baseURL:   strings.TrimSpace(baseURL),
	}
}

type restFactory struct {
	userAgent string
	baseURL   string
}

type restClient struct {
	client *github.Client
}

// New builds a client. An empty token yields an unauthenticated client, which
// is enough for public repositories but subject to lower rate limits.
func (f *restFactory) New(ctx context.Context, token string) (Client, error) {
	var httpClient *http.Client
	if token = strings.TrimSpace(token); token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	ghClient := github.NewClient(httpClient)
	if f.baseURL != "" {
		baseURLNormalized, err := normalizeGitHubURL(f.baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}

		ghClient, err = ghClient.WithEnterpriseURLs(baseURLNormalized, baseURLNormalized)
		if err != nil {
			return nil, fmt.Errorf("construct enterprise github client: %w", err)
		}
	}

	if f.userAgent != "" {
		ghClient.UserAgent = f.userAgent
	}

	return &restClient{client: ghClient}, nil
}

func normalizeGitHubURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url cannot be empty")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	if parsed.Scheme == "" {
		return "", fmt.Errorf("url must include scheme (e.g. https://)")
	}

	if parsed.Host == "" {
		return "", fmt.Errorf("url must include host")
	}

	if parsed.Path == "" {
		parsed.Path = "/"
	} else if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""

	return parsed.String(), nil
}

func (c *restClient) RepositoryExists(ctx context.Context, owner, repo string) (bool, error) {
	_, resp, err := c.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		if isNotFound(resp, err) {
			return false, nil
		}
		err = classifyGitHubError(err)
		return false, fmt.Errorf("get repository %s/%s: %w", owner, repo, err)
	}
	return true, nil
}

func (c *restClient) ContentExists(ctx context.Context, owner, repo, path, ref string) (bool, error) {
	opts := &github.RepositoryContentGetOptions{Ref: ref}
	_, _, resp, err := c.client.Repositories.GetContents(ctx, owner, repo, strings.TrimPrefix(path, "/"), opts)
	if err != nil {
		if isNotFound(resp, err) {
			return false, nil
		}
		err = classifyGitHubError(err)
		return false, fmt.Errorf("get contents %s in %s/%s@%s: %w", path, owner, repo, ref, err)
	}
	return true, nil
}

func isNotFound(resp *github.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}
	var githubErr *github.ErrorResponse
	if errors.As(err, &githubErr) {
		if githubErr.Response != nil && githubErr.Response.StatusCode == http.StatusNotFound {
			return true
		}
	}
	return false
}

func classifyGitHubError(err error) error {
	if err == nil {
		return nil
	}
	if isRetryableGitHubError(err) {
		return &retryableError{err: err}
	}
	return err
}

func isRetryableGitHubError(err error) bool {
	if err == nil {
		return false
	}

	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		if respErr.Response != nil {
			code := respErr.Response.StatusCode
			if code == http.StatusTooManyRequests || (code >= 500 && code <= 599) {
				return true
			}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}

	return false
}

// IsRateLimited reports whether err was caused by the API rate limit, which
// unauthenticated clients hit quickly.
func IsRateLimited(err error) bool {
	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	return errors.As(err, &abuseErr)
}
