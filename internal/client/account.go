package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/ces-client/pkg/ces"
)

// AccountClient implements ces.AccountClient.
type AccountClient struct {
	session *ces.Session
}

// NewAccountClient creates a new account client.
func NewAccountClient(session *ces.Session) *AccountClient {
	return &AccountClient{session: session}
}

// GetAccount implements ces.AccountClient.GetAccount.
func (c *AccountClient) GetAccount(ctx context.Context) (*ces.Account, error) {
	account, err := ces.Fetch(ctx, c.session, ces.EndpointAccount, ces.WrapAccount, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("getting account: %w", err)
	}

	return account, nil
}

// ListSubaccounts implements ces.AccountClient.ListSubaccounts.
func (c *AccountClient) ListSubaccounts(opts *ces.ListOptions) (*ces.Collection[*ces.Account], error) {
	return ces.List(c.session, ces.EndpointSubaccounts, ces.WrapAccount, nil, opts)
}

// ListTerms implements ces.AccountClient.ListTerms.
func (c *AccountClient) ListTerms(opts *ces.ListOptions) (*ces.Collection[*ces.Term], error) {
	return ces.List(c.session, ces.EndpointTerms, ces.WrapTerm, nil, opts)
}
