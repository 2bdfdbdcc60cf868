package remote

import "net/http"

// Authenticator applies authentication to outgoing requests.
type Authenticator interface {
	Apply(req *http.Request)
}

// NoAuth sends requests unauthenticated.
type NoAuth struct{}

// Apply implements Authenticator.
func (NoAuth) Apply(_ *http.Request) {}

// BearerAuth sends a Bearer token.
type BearerAuth struct {
	Token string
}

// Apply implements Authenticator.
func (a BearerAuth) Apply(req *http.Request) {
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}
}
