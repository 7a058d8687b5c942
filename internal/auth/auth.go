// Package auth attributes inbound requests to accounts.
package auth

import (
	"context"
	"fmt"

	"hatchery/pkg/domain"
)

// Static trusts the account named in the request. It is meant for hosts that
// authenticate callers before they reach the registry.
type Static struct{}

var _ domain.Authenticator = Static{}

// Authenticate returns req.Account, rejecting requests that name no account.
func (Static) Authenticate(_ context.Context, req domain.Request) (domain.AccountID, error) {
	if req.Account == "" {
		return "", fmt.Errorf("request has no account: %w", domain.ErrUnauthenticated)
	}
	return req.Account, nil
}
