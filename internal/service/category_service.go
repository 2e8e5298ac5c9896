package service

import (
	"context"
	"errors"
	"strings"

	"cookbook/internal/models"
	"cookbook/internal/repository"
	"cookbook/internal/store"
)

// DuplicateCategoryMessage is returned when a category title is already taken.
const DuplicateCategoryMessage = "Following category already exists"

type CategoryService struct {
	categoryRepo repository.CategoryRepository
}

type CreateCategoryInput struct {
	Title string
}

func NewCategoryService(categoryRepo repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, models.NewUpstreamError("Could not list categories", err)
	}
	return categories, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, categoryID string) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return nil, storeError(err, "Category", categoryID, "read")
	}
	return category, nil
}

// CreateCategory stores a new category. Titles are unique ignoring case and surrounding spaces.
// Two concurrent creates with the same title can both pass the duplicate check.
func (s *CategoryService) CreateCategory(ctx context.Context, in CreateCategoryInput) (*models.Category, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewFieldValidationError([]models.FieldError{{Field: "title", Message: "title is required"}})
	}

	_, err := s.categoryRepo.FindByTitle(ctx, title)
	switch {
	case err == nil:
		return nil, models.NewConflictError(DuplicateCategoryMessage)
	case !errors.Is(err, store.ErrNotFound):
		return nil, models.NewUpstreamError("Could not create category", err)
	}

	category := &models.Category{
		CategoryID: models.NewCategoryID(),
		Title:      title,
		CreatedAt:  models.NowMillis(),
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, store.ErrConditionFailed) {
			return nil, models.NewConflictError(DuplicateCategoryMessage)
		}
		return nil, models.NewUpstreamError("Could not create category", err)
	}
	return category, nil
}
