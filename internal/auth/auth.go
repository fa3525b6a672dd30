// Package auth resolves bearer tokens to user identities against an external
// identity service, with short lived caching so hot tokens do not hammer it.
package auth

import (
	"context"
	"time"
)

// User is the resolved identity behind a bearer token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Provider resolves a bearer token to a user.
type Provider interface {
	UserFromToken(ctx context.Context, token string) (*User, error)
}

// DefaultCacheTTL bounds how long a resolved token is trusted without
// re-checking the identity service.
const DefaultCacheTTL = 5 * time.Minute
