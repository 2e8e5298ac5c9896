package service

import (
	"context"
	"errors"

	"cookbook/internal/identity"
	"cookbook/internal/models"
)

// BearerPrefix is prepended to issued tokens in login responses.
const BearerPrefix = "Bearer "

type AuthService struct {
	provider identity.Provider
}

type LoginInput struct {
	Email    string
	Password string
}

func NewAuthService(provider identity.Provider) *AuthService {
	return &AuthService{provider: provider}
}

// Login authenticates the credentials and returns "Bearer <token>".
// Every rejection looks the same to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (string, error) {
	token, err := s.provider.Authenticate(ctx, models.NormalizeEmail(in.Email), in.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		return "", models.NewUnauthorizedError("Invalid email or password")
	}
	if err != nil {
		return "", models.NewUpstreamError("Could not log in", err)
	}
	return BearerPrefix + token, nil
}
