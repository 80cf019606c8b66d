// Package settings persists the per-user client configuration: which
// repository and branch to run, where the pipeline server lives and how output
// is rendered.
package settings

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/hay-kot/criterio"
)

// Format selects how commands render structured output.
type Format string

const (
	FormatPlain Format = "plain"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// DefaultBranch is used when no branch has been configured.
const DefaultBranch = "main"

// ErrInvalidFormat is returned by Update when the requested format is not one
// of plain, json or yaml. The update is discarded as a whole.
var ErrInvalidFormat = errors.New("format has to be plain/ json/ yaml")

// ParseFormat validates raw as an output format.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatPlain, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidFormat, raw)
	}
}

// Settings is the persisted client configuration. Repo and Server are nil until
// the user configures them.
type Settings struct {
	IsRepoRemote bool    `json:"is-repo-remote" yaml:"is-repo-remote"`
	IsRunRemote  bool    `json:"is-run-remote" yaml:"is-run-remote"`
	Repo         *string `json:"repo" yaml:"repo"`
	Branch       string  `json:"branch" yaml:"branch"`
	Server       *string `json:"server" yaml:"server"`
	Format       Format  `json:"format" yaml:"format"`
}

// Defaults returns the settings of a fresh installation.
func Defaults() Settings {
	return Settings{
		Branch: DefaultBranch,
		Format: FormatPlain,
	}
}

// RepoValue returns the configured repository, or "" when unset.
func (s Settings) RepoValue() string {
	if s.Repo == nil {
		return ""
	}
	return *s.Repo
}

// ServerValue returns the configured server base URL, or "" when unset.
func (s Settings) ServerValue() string {
	if s.Server == nil {
		return ""
	}
	return *s.Server
}

// Lines renders the settings as "key: value" lines in file order.
func (s Settings) Lines() []string {
	return []string{
		fmt.Sprintf("is-repo-remote: %t", s.IsRepoRemote),
		fmt.Sprintf("is-run-remote: %t", s.IsRunRemote),
		"repo: " + displayOptional(s.Repo),
		"branch: " + s.Branch,
		"server: " + displayOptional(s.Server),
		"format: " + string(s.Format),
	}
}

func displayOptional(v *string) string {
	if v == nil {
		return "none"
	}
	return *v
}

// Update carries the fields a `config set` invocation provided. Nil fields are
// left untouched.
type Update struct {
	IsRepoRemote *bool
	IsRunRemote  *bool
	Repo         *string
	Branch       *string
	Server       *string
	Format       *string
}

// IsNull reports whether a user supplied string means "no value". Such inputs
// leave the corresponding setting unchanged.
func IsNull(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "none", "null":
		return true
	default:
		return false
	}
}

func provided(v *string) (string, bool) {
	if v == nil || IsNull(*v) {
		return "", false
	}
	return strings.TrimSpace(*v), true
}

// apply returns s with u applied. On error s is returned unchanged.
func (s Settings) apply(u Update) (Settings, error) {
	next := s

	if raw, ok := provided(u.Format); ok {
		format, err := ParseFormat(raw)
		if err != nil {
			return s, err
		}
		next.Format = format
	}

	branch, hasBranch := provided(u.Branch)
	server, hasServer := provided(u.Server)

	var checks []error
	if hasBranch {
		checks = append(checks, criterio.Run("branch", branch, validBranch))
	}
	if hasServer {
		checks = append(checks, criterio.Run("server", server, validServerURL))
	}
	if err := criterio.ValidateStruct(checks...); err != nil {
		return s, err
	}

	if u.IsRepoRemote != nil {
		next.IsRepoRemote = *u.IsRepoRemote
	}
	if u.IsRunRemote != nil {
		next.IsRunRemote = *u.IsRunRemote
	}
	if repo, ok := provided(u.Repo); ok {
		next.Repo = &repo
	}
	if hasBranch {
		next.Branch = branch
	}
	if hasServer {
		server = strings.TrimRight(server, "/")
		next.Server = &server
	}

	return next, nil
}

func validBranch(branch string) error {
	if strings.ContainsAny(branch, " \t\n") {
		return fmt.Errorf("branch name cannot contain whitespace")
	}
	return nil
}

func validServerURL(raw string) error {
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

func (s *Settings) normalize() []string {
	var fixed []string
	if strings.TrimSpace(s.Branch) == "" {
		s.Branch = DefaultBranch
		fixed = append(fixed, "branch")
	}
	if _, err := ParseFormat(string(s.Format)); err != nil {
		s.Format = FormatPlain
		fixed = append(fixed, "format")
	} else {
		s.Format = Format(strings.ToLower(strings.TrimSpace(string(s.Format))))
	}
	if s.Repo != nil && IsNull(*s.Repo) {
		s.Repo = nil
	}
	if s.Server != nil && IsNull(*s.Server) {
		s.Server = nil
	}
	return fixed
}
