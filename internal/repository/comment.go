package repository

import (
	"context"

	"cookbook/internal/models"
	"cookbook/internal/store"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	GetByID(ctx context.Context, commentID string) (*models.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]models.Comment, error)
	Create(ctx context.Context, comment *models.Comment) error
	// Delete only applies while the stored author equals author.
	Delete(ctx context.Context, commentID, author string) error
	// Purge deletes without an ownership condition. Used by the post cascade.
	Purge(ctx context.Context, commentID string) error
}

type commentRepository struct {
	table store.Table[models.Comment]
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(table store.Table[models.Comment]) CommentRepository {
	return &commentRepository{table: table}
}

func (r *commentRepository) GetByID(ctx context.Context, commentID string) (*models.Comment, error) {
	return r.table.Get(ctx, commentID)
}

func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	comments, err := r.table.Scan(ctx, store.Eq(models.PostKey, postID))
	if err != nil {
		return nil, err
	}
	return newestFirst(comments, func(c *models.Comment) int64 { return c.CreatedAt }), nil
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.table.Create(ctx, comment)
}

func (r *commentRepository) Delete(ctx context.Context, commentID, author string) error {
	return r.table.Delete(ctx, commentID, store.Eq("author", author))
}

func (r *commentRepository) Purge(ctx context.Context, commentID string) error {
	return r.table.Delete(ctx, commentID)
}
