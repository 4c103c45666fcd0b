// Package auth resolves the signed-in user for a request. It does not manage
// sessions; it only maps an already-authenticated request to an Identity.
package auth

import (
	"context"
	"net/http"
	"strings"
)

type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

func (i Identity) IsZero() bool {
	return strings.TrimSpace(i.UserID) == ""
}

// Resolver maps an inbound request to the caller's identity.
type Resolver interface {
	Resolve(r *http.Request) (Identity, bool)
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity, or the zero Identity.
func FromContext(ctx context.Context) Identity {
	if ctx == nil {
		return Identity{}
	}
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}
