package server

import (
	"cookbook/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCategories handles GET /category
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.ListCategories(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(categories)
}

// GetCategory handles GET /category/:categoryId
func (s *Server) GetCategory(c *fiber.Ctx) error {
	category, err := s.categoryService.GetCategory(c.UserContext(), c.Params("categoryId"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(category)
}

// CreateCategory handles POST /category
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var req CreateCategoryRequest
	if ok, err := s.parseBody(c, &req); !ok {
		return err
	}

	category, err := s.categoryService.CreateCategory(c.UserContext(), service.CreateCategoryInput{Title: req.Title})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}
