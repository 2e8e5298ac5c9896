package middleware

import (
	"context"

	"cookbook/internal/identity"
)

type verifierFunc func(token string) (*identity.Principal, error)

func (f verifierFunc) Verify(_ context.Context, token string) (*identity.Principal, error) {
	return f(token)
}
