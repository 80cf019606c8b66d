package gh

import (
	"context"
	"errors"
)

// Client exposes the read-only hosting API lookups used to validate remote
// repositories before a pipeline request is sent.
type Client interface {
	// RepositoryExists reports whether owner/repo is visible to the client.
	RepositoryExists(ctx context.Context, owner, repo string) (bool, error)
	// ContentExists reports whether path exists in owner/repo at ref.
	ContentExists(ctx context.Context, owner, repo, path, ref string) (bool, error)
}

// Factory builds concrete hosting clients (e.g., REST-backed).
type Factory interface {
	New(ctx context.Context, token string) (Client, error)
}

// retryableError marks an error that may succeed if the operation is retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	if e == nil || e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// IsRetryable reports whether the supplied error resulted from a transient API
// failure (for example, a network timeout or rate-limited request). Lookups are
// never retried automatically; callers use this to word their diagnostics.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var target *retryableError
	return errors.As(err, &target)
}
