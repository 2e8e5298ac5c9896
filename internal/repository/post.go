package repository

import (
	"context"

	"cookbook/internal/models"
	"cookbook/internal/patch"
	"cookbook/internal/store"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	GetByID(ctx context.Context, postID string) (*models.Post, error)
	List(ctx context.Context) ([]models.Post, error)
	ListByAuthor(ctx context.Context, author string) ([]models.Post, error)
	ListByCategory(ctx context.Context, categoryID string) ([]models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	// Update and Delete only apply while the stored author equals author.
	Update(ctx context.Context, postID, author string, p *patch.Patch) error
	Delete(ctx context.Context, postID, author string) error
}

type postRepository struct {
	table store.Table[models.Post]
}

// NewPostRepository creates a new post repository
func NewPostRepository(table store.Table[models.Post]) PostRepository {
	return &postRepository{table: table}
}

func postCreatedAt(p *models.Post) int64 { return p.CreatedAt }

func (r *postRepository) GetByID(ctx context.Context, postID string) (*models.Post, error) {
	return r.table.Get(ctx, postID)
}

func (r *postRepository) List(ctx context.Context) ([]models.Post, error) {
	return r.scan(ctx)
}

func (r *postRepository) ListByAuthor(ctx context.Context, author string) ([]models.Post, error) {
	return r.scan(ctx, store.Eq("author", author))
}

func (r *postRepository) ListByCategory(ctx context.Context, categoryID string) ([]models.Post, error) {
	return r.scan(ctx, store.Eq("category", categoryID))
}

func (r *postRepository) scan(ctx context.Context, filters ...store.Condition) ([]models.Post, error) {
	posts, err := r.table.Scan(ctx, filters...)
	if err != nil {
		return nil, err
	}
	return newestFirst(posts, postCreatedAt), nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.table.Create(ctx, post)
}

func (r *postRepository) Update(ctx context.Context, postID, author string, p *patch.Patch) error {
	return r.table.Update(ctx, postID, p, store.Eq("author", author))
}

func (r *postRepository) Delete(ctx context.Context, postID, author string) error {
	return r.table.Delete(ctx, postID, store.Eq("author", author))
}
