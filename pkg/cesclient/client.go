package cesclient

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/ces-client/internal/client"
	"github.com/fivetwenty-io/ces-client/pkg/ces"
)

// New creates a new CES API client. The base URL is validated, then trimmed
// of whitespace and trailing slashes; config itself is not modified.
func New(ctx context.Context, config *ces.Config) (ces.Client, error) {
	if config == nil {
		return nil, ces.ErrConfigRequired
	}

	err := ces.ValidateBaseURL(config.BaseURL)
	if err != nil {
		return nil, err
	}

	normalized := *config
	normalized.BaseURL = ces.CleanBaseURL(config.BaseURL)

	err = normalized.Validate()
	if err != nil {
		return nil, err
	}

	cli, err := client.New(ctx, &normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return cli, nil
}

// NewWithToken creates a new client with a base URL and access token.
func NewWithToken(ctx context.Context, baseURL, token string) (ces.Client, error) {
	return New(ctx, &ces.Config{
		BaseURL:     baseURL,
		AccessToken: token,
	})
}

// NewFromFile loads configuration with ces.LoadConfig and creates a client.
// An empty path reads $HOME/.ces/config.yml if present.
func NewFromFile(ctx context.Context, path string) (ces.Client, error) {
	config, err := ces.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	return New(ctx, config)
}
