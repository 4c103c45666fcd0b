package auth

import (
	"net/http"
	"strings"
)

const (
	HeaderUserID = "X-User-ID"
	HeaderName   = "X-User-Name"
	HeaderEmail  = "X-User-Email"
)

// HeaderResolver trusts identity headers set by an upstream proxy.
// Only suitable behind a gateway or in development.
type HeaderResolver struct{}

func (HeaderResolver) Resolve(r *http.Request) (Identity, bool) {
	if r == nil {
		return Identity{}, false
	}
	id := Identity{
		UserID: strings.TrimSpace(r.Header.Get(HeaderUserID)),
		Name:   strings.TrimSpace(r.Header.Get(HeaderName)),
		Email:  strings.TrimSpace(r.Header.Get(HeaderEmail)),
	}
	if id.IsZero() {
		return Identity{}, false
	}
	return id, true
}

// TokenResolver maps static bearer tokens to user ids.
type TokenResolver struct {
	tokens map[string]string
}

func NewTokenResolver(tokens map[string]string) *TokenResolver {
	cp := make(map[string]string, len(tokens))
	for tok, user := range tokens {
		tok, user = strings.TrimSpace(tok), strings.TrimSpace(user)
		if tok != "" && user != "" {
			cp[tok] = user
		}
	}
	return &TokenResolver{tokens: cp}
}

func (t *TokenResolver) Resolve(r *http.Request) (Identity, bool) {
	if r == nil {
		return Identity{}, false
	}
	tok := bearerToken(r.Header.Get("Authorization"))
	if tok == "" {
		// browsers cannot set headers on a websocket handshake
		tok = strings.TrimSpace(r.URL.Query().Get("token"))
	}
	if tok == "" {
		return Identity{}, false
	}
	user, ok := t.tokens[tok]
	if !ok {
		return Identity{}, false
	}
	return Identity{UserID: user}, true
}

func bearerToken(h string) string {
	const prefix = "bearer "
	h = strings.TrimSpace(h)
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(r *http.Request) (Identity, bool)

func (f ResolverFunc) Resolve(r *http.Request) (Identity, bool) { return f(r) }
