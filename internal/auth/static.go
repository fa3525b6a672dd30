package auth

import "context"

// StaticProvider maps fixed tokens to users. Used when auth is disabled and
// in tests.
type StaticProvider struct {
	Users map[string]*User
}

func NewStaticProvider(users map[string]*User) *StaticProvider {
	return &StaticProvider{Users: users}
}

func (p *StaticProvider) UserFromToken(_ context.Context, token string) (*User, error) {
	if user, ok := p.Users[token]; ok {
		return user, nil
	}
	return nil, unauthorized("unknown token")
}
