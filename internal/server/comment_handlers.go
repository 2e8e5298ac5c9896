package server

import (
	"cookbook/internal/middleware"
	"cookbook/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /comment/:postId
func (s *Server) GetComments(c *fiber.Ctx) error {
	comments, err := s.commentService.ListComments(c.UserContext(), c.Params("postId"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment handles POST /comment
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req CreateCommentRequest
	if ok, err := s.parseBody(c, &req); !ok {
		return err
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		AuthorEmail: middleware.UserEmail(c),
		PostID:      req.PostID,
		Text:        req.Text,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteComment handles DELETE /comment/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		CallerEmail: middleware.UserEmail(c),
		CommentID:   c.Params("commentId"),
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted successfully"})
}
