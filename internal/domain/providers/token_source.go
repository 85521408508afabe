package providers

import "context"

// TokenSource returns the bearer token of the signed-in session. Sign-in and
// token storage live outside this module.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource backed by a fixed token.
type StaticToken string

// Token implements TokenSource
func (t StaticToken) Token(ctx context.Context) (string, error) {
	return string(t), nil
}
