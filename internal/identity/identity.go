// Package identity talks to the identity provider that owns credentials and mints tokens.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrUserExists is returned by SignUp when the email is already registered.
	ErrUserExists = errors.New("identity: user already exists")
	// ErrInvalidCredentials is returned by Authenticate for a wrong email or password.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrWeakPassword is returned when the provider rejects a password by policy.
	ErrWeakPassword = errors.New("identity: password does not satisfy policy")
	// ErrInvalidToken is returned by Verify for malformed, expired or foreign tokens.
	ErrInvalidToken = errors.New("identity: invalid token")
)

// Principal is the authenticated caller.
type Principal struct {
	Email   string
	Subject string
}

// Provider manages accounts and issues identity tokens.
type Provider interface {
	// SignUp registers email with a permanent password and a verified address. No invitation is sent.
	SignUp(ctx context.Context, email, password string) error
	// Authenticate exchanges credentials for an identity token.
	Authenticate(ctx context.Context, email, password string) (string, error)
	// DeleteUser removes an account. Used to undo a sign-up whose profile could not be stored.
	DeleteUser(ctx context.Context, email string) error
}

// Verifier resolves a bearer token into a Principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}
