package gh

import (
	"strings"
)

// DefaultHostPrefix is the URL prefix a repository must carry to be treated as
// hosted on GitHub.
const DefaultHostPrefix = "https://github.com/"

// SplitOwnerRepo extracts the owner and repository name from the last two path
// segments of a repository URL. A trailing slash and ".git" suffix are ignored.
func SplitOwnerRepo(repoURL string) (owner, repo string, ok bool) {
	trimmed := strings.TrimSpace(repoURL)
	trimmed = strings.TrimRight(trimmed, "/")
	trimmed = strings.TrimSuffix(trimmed, ".git")

	if i := strings.Index(trimmed, "://"); i >= 0 {
		trimmed = trimmed[i+3:]
	}

	parts := strings.Split(trimmed, "/")
	if len(parts) < 3 {
		// host/owner/repo is the shortest usable form.
		return "", "", false
	}

	owner, repo = parts[len(parts)-2], parts[len(parts)-1]
	if owner == "" || repo == "" {
		return "", "", false
	}
	return owner, repo, true
}

// ParseHostedURL validates that repoURL starts with prefix and names exactly an
// owner/repo pair beneath it. Deeper links such as .../tree/main are rejected.
func ParseHostedURL(prefix, repoURL string) (owner, repo string, ok bool) {
	if prefix == "" {
		prefix = DefaultHostPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	repoURL = strings.TrimSpace(repoURL)
	if !strings.HasPrefix(repoURL, prefix) {
		return "", "", false
	}

	rest := strings.TrimRight(strings.TrimPrefix(repoURL, prefix), "/")
	rest = strings.TrimSuffix(rest, ".git")

	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
