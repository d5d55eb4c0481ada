package auth

import (
	"context"
	"net/http"

	"git.sr.ht/~jakintosh/fbgraph/pkg/graph"
)

// UserSource resolves the logged in user of a request.
// Consuming projects should depend on this interface rather than
// *Authenticator to enable testing with fakes.
type UserSource interface {
	UserFromRequest(ctx context.Context, r *http.Request) (*User, error)
}

// Compile-time checks.
var _ UserSource = (*Authenticator)(nil)
var _ Exchanger = (*graph.Client)(nil)
