package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"cookbook/internal/media"
	"cookbook/internal/middleware"
	"cookbook/internal/models"
	"cookbook/internal/observability"
	"cookbook/internal/patch"
	"cookbook/internal/repository"
	"cookbook/internal/store"

	"golang.org/x/sync/errgroup"
)

// cascadeWorkers bounds concurrent comment deletes while a post is removed.
const cascadeWorkers = 8

type PostService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	uploader    media.Uploader
}

type CreatePostInput struct {
	AuthorEmail string
	Title       string
	Category    string
	Ingredients string
	Recipe      string
	Image       *ImageUpload
}

// UpdatePostInput carries a post update. Empty strings leave the field unchanged.
type UpdatePostInput struct {
	CallerEmail string
	PostID      string
	Title       string
	Category    string
	Ingredients string
	Recipe      string
	Image       *ImageUpload
}

type DeletePostInput struct {
	CallerEmail string
	PostID      string
}

func NewPostService(postRepo repository.PostRepository, commentRepo repository.CommentRepository, uploader media.Uploader) *PostService {
	return &PostService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		uploader:    uploader,
	}
}

func (s *PostService) ListPosts(ctx context.Context) ([]models.Post, error) {
	posts, err := s.postRepo.List(ctx)
	if err != nil {
		return nil, models.NewUpstreamError("Could not list posts", err)
	}
	return posts, nil
}

func (s *PostService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, storeError(err, "Post", postID, "read")
	}
	return post, nil
}

// ListByAuthor returns the posts written by the user with the given derived identity.
func (s *PostService) ListByAuthor(ctx context.Context, userID string) ([]models.Post, error) {
	posts, err := s.postRepo.ListByAuthor(ctx, userID)
	if err != nil {
		return nil, models.NewUpstreamError("Could not list posts", err)
	}
	return posts, nil
}

func (s *PostService) ListByCategory(ctx context.Context, categoryID string) ([]models.Post, error) {
	posts, err := s.postRepo.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, models.NewUpstreamError("Could not list posts", err)
	}
	return posts, nil
}

// CreatePost uploads the image and stores the post. The upload is destroyed again if the post cannot be written.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.Image == nil {
		return nil, models.NewFieldValidationError([]models.FieldError{{Field: "image", Message: "image is required"}})
	}

	img, appErr := upload(ctx, s.uploader, media.FolderPost, in.Image)
	if appErr != nil {
		return nil, appErr
	}

	post := &models.Post{
		PostID:      models.NewPostID(),
		Title:       strings.TrimSpace(in.Title),
		Author:      models.DerivedIdentity(in.AuthorEmail),
		Category:    strings.TrimSpace(in.Category),
		ImageID:     img.ID,
		ThumbURL:    img.ThumbURL,
		ImageURL:    img.ImageURL,
		Ingredients: in.Ingredients,
		Recipe:      in.Recipe,
		CreatedAt:   models.NowMillis(),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		discardImage(ctx, s.uploader, img.ID, "record_write_failed")
		return nil, models.NewUpstreamError("Could not create post", err)
	}
	return post, nil
}

// UpdatePost applies a partial update. The write is conditional on the caller still being the author.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	caller := models.DerivedIdentity(in.CallerEmail)

	existing, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, storeError(err, "Post", in.PostID, "update")
	}
	if existing.Author != caller {
		return nil, models.NewForbiddenError("You can only update your own posts")
	}

	p := patch.New().
		Set("title", strings.TrimSpace(in.Title)).
		Set("category", strings.TrimSpace(in.Category)).
		Set("ingredients", in.Ingredients).
		Set("recipe", in.Recipe)
	if p.Empty() && in.Image == nil {
		return nil, models.NewValidationError("No fields to update")
	}

	var uploaded *media.Image
	if in.Image != nil {
		img, appErr := upload(ctx, s.uploader, media.FolderPost, in.Image)
		if appErr != nil {
			return nil, appErr
		}
		uploaded = img
		p.Set("imageId", img.ID).Set("thumbUrl", img.ThumbURL).Set("imageUrl", img.ImageURL)
	}
	p.Set("updatedAt", models.NowMillis())

	if err := s.postRepo.Update(ctx, in.PostID, caller, p); err != nil {
		if uploaded != nil {
			discardImage(ctx, s.uploader, uploaded.ID, "record_write_failed")
		}
		return nil, storeError(err, "Post", in.PostID, "update")
	}
	if uploaded != nil && existing.ImageID != "" && existing.ImageID != uploaded.ID {
		discardImage(ctx, s.uploader, existing.ImageID, "replaced")
	}

	return s.GetPost(ctx, in.PostID)
}

// DeletePost removes the post's comments, then the post, then its image.
// If any comment cannot be removed the post is kept so the delete can be retried.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	caller := models.DerivedIdentity(in.CallerEmail)

	existing, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return storeError(err, "Post", in.PostID, "delete")
	}
	if existing.Author != caller {
		return models.NewForbiddenError("You can only delete your own posts")
	}

	if err := s.deleteComments(ctx, in.PostID); err != nil {
		middleware.Logger.ErrorContext(ctx, "post cascade failed",
			slog.String("post_id", in.PostID),
			slog.String("error", err.Error()),
		)
		return models.NewUpstreamError("Could not delete post comments", err)
	}

	if err := s.postRepo.Delete(ctx, in.PostID, caller); err != nil {
		return storeError(err, "Post", in.PostID, "delete")
	}

	discardImage(ctx, s.uploader, existing.ImageID, "post_deleted")
	return nil
}

func (s *PostService) deleteComments(ctx context.Context, postID string) error {
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return err
	}

	var deleted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cascadeWorkers)
	for _, comment := range comments {
		id := comment.CommentID
		g.Go(func() error {
			err := s.commentRepo.Purge(gctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			deleted.Add(1)
			return nil
		})
	}
	err = g.Wait()
	observability.CascadeDeletedComments.Add(float64(deleted.Load()))
	return err
}
