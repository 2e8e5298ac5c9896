package server

import (
	"cookbook/internal/middleware"
	"cookbook/internal/models"
	"cookbook/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /post
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListPosts(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /post/:postId
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.UserContext(), c.Params("postId"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(post)
}

// GetUserPosts handles GET /post/user/:userId
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListByAuthor(c.UserContext(), c.Params("userId"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(posts)
}

// GetMyPosts handles GET /post/current-user/me
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListByAuthor(c.UserContext(), models.DerivedIdentity(middleware.UserEmail(c)))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(posts)
}

// GetCategoryPosts handles GET /post/category/:categoryId
func (s *Server) GetCategoryPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListByCategory(c.UserContext(), c.Params("categoryId"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /post. The body is multipart with a required image part.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req CreatePostRequest
	if ok, err := s.parseBody(c, &req); !ok {
		return err
	}

	img, file, err := s.formImage(c)
	if err != nil {
		return s.respondError(c, err)
	}
	defer closeFile(file)

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorEmail: middleware.UserEmail(c),
		Title:       req.Title,
		Category:    req.Category,
		Ingredients: req.Ingredients,
		Recipe:      req.Recipe,
		Image:       img,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PATCH /post/:postId with an optional replacement image.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	var req UpdatePostRequest
	if ok, err := s.parseBody(c, &req); !ok {
		return err
	}

	img, file, err := s.formImage(c)
	if err != nil {
		return s.respondError(c, err)
	}
	defer closeFile(file)

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		CallerEmail: middleware.UserEmail(c),
		PostID:      c.Params("postId"),
		Title:       req.Title,
		Category:    req.Category,
		Ingredients: req.Ingredients,
		Recipe:      req.Recipe,
		Image:       img,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /post/:postId. Comments on the post are removed with it.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		CallerEmail: middleware.UserEmail(c),
		PostID:      c.Params("postId"),
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}
