package server

import (
	"cookbook/internal/middleware"
	"cookbook/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetUsers handles GET /user
func (s *Server) GetUsers(c *fiber.Ctx) error {
	users, err := s.userService.ListUsers(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(users)
}

// GetUser handles GET /user/:userId
func (s *Server) GetUser(c *fiber.Ctx) error {
	user, err := s.userService.GetUser(c.UserContext(), c.Params("userId"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(user)
}

// GetCurrentUser handles GET /user/current-user/me
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	user, err := s.userService.CurrentUser(c.UserContext(), middleware.UserEmail(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(user)
}

// CreateUser handles POST /user. The new user is logged in right away.
func (s *Server) CreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if ok, err := s.parseBody(c, &req); !ok {
		return err
	}

	token, _, err := s.userService.SignUp(c.UserContext(), service.SignUpInput{
		UserName: req.UserName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(TokenResponse{
		Message:     "Successfully created new user",
		AccessToken: token,
	})
}

// UpdateUser handles PATCH /user/:userId with an optional profile image.
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	var req UpdateUserRequest
	if ok, err := s.parseBody(c, &req); !ok {
		return err
	}

	img, file, err := s.formImage(c)
	if err != nil {
		return s.respondError(c, err)
	}
	defer closeFile(file)

	user, err := s.userService.UpdateUser(c.UserContext(), service.UpdateUserInput{
		CallerEmail: middleware.UserEmail(c),
		UserID:      c.Params("userId"),
		UserName:    req.UserName,
		Description: req.Description,
		Image:       img,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(user)
}
