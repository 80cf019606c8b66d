package gh

import (
	"context"
	"fmt"
)

// NewNoopFactory returns a Factory that builds noop clients. Noop clients fail
// every lookup, so callers treating errors as "does not exist" fail closed.
func NewNoopFactory() Factory {
	return noopFactory{}
}

type noopFactory struct{}

func (noopFactory) New(ctx context.Context, token string) (Client, error) {
	return noopClient{}, nil
}

type noopClient struct{}

func (noopClient) RepositoryExists(ctx context.Context, owner, repo string) (bool, error) {
	return false, fmt.Errorf("noop github client not implemented")
}

func (noopClient) ContentExists(ctx context.Context, owner, repo, path, ref string) (bool, error) {
	return false, fmt.Errorf("noop github client not implemented")
}
