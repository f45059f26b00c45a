package xrpc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bnema/atp-accounts-cli/internal/domain"
	"github.com/bnema/atp-accounts-cli/internal/ports"
)

// Resolver answers handle lookups against whichever service an account
// lives on. Unauthenticated.
type Resolver struct {
	HTTP *http.Client
}

var _ ports.HandleResolver = (*Resolver)(nil)

func (r *Resolver) ResolveHandle(ctx context.Context, service, handle string) (domain.DID, error) {
	client := NewClient(service, r.HTTP)

	var out struct {
		DID string `json:"did"`
	}
	query := url.Values{"handle": []string{handle}}
	if err := client.call(ctx, http.MethodGet, procResolveHandle, query, nil, "", &out); err != nil {
		return "", fmt.Errorf("resolve handle %q: %w", handle, err)
	}
	return domain.DID(out.DID), nil
}
