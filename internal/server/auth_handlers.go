package server

import (
	"cookbook/internal/service"

	"github.com/gofiber/fiber/v2"
)

// TokenResponse is returned by login and sign-up.
type TokenResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
}

// Login handles POST /auth
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if ok, err := s.parseBody(c, &req); !ok {
		return err
	}

	token, err := s.authService.Login(c.UserContext(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(TokenResponse{
		Message:     "Successfully logged in",
		AccessToken: token,
	})
}
