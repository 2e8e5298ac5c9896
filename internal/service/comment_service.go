package service

import (
	"context"
	"strings"

	"cookbook/internal/models"
	"cookbook/internal/repository"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

type CreateCommentInput struct {
	AuthorEmail string
	PostID      string
	Text        string
}

type DeleteCommentInput struct {
	CallerEmail string
	CommentID   string
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
	}
}

// ListComments returns the comments on a post, newest first. An unknown post has no comments.
func (s *CommentService) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, models.NewUpstreamError("Could not list comments", err)
	}
	return comments, nil
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	postID := strings.TrimSpace(in.PostID)
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, storeError(err, "Post", postID, "read")
	}

	comment := &models.Comment{
		CommentID: models.NewCommentID(),
		PostID:    postID,
		Author:    models.DerivedIdentity(in.AuthorEmail),
		Text:      strings.TrimSpace(in.Text),
		CreatedAt: models.NowMillis(),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, models.NewUpstreamError("Could not create comment", err)
	}
	return comment, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) error {
	caller := models.DerivedIdentity(in.CallerEmail)

	existing, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return storeError(err, "Comment", in.CommentID, "delete")
	}
	if existing.Author != caller {
		return models.NewForbiddenError("You can only delete your own comments")
	}

	if err := s.commentRepo.Delete(ctx, in.CommentID, caller); err != nil {
		return storeError(err, "Comment", in.CommentID, "delete")
	}
	return nil
}
