package repository

import (
	"context"
	"strings"

	"cookbook/internal/cache"
	"cookbook/internal/models"
	"cookbook/internal/store"
)

// CategoryRepository defines the interface for category data operations
type CategoryRepository interface {
	GetByID(ctx context.Context, categoryID string) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	// FindByTitle returns the category whose title matches ignoring case, or store.ErrNotFound.
	// It always reads the table, never the cache.
	FindByTitle(ctx context.Context, title string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
}

type categoryRepository struct {
	table store.Table[models.Category]
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(table store.Table[models.Category]) CategoryRepository {
	return &categoryRepository{table: table}
}

func (r *categoryRepository) GetByID(ctx context.Context, categoryID string) (*models.Category, error) {
	var category models.Category
	err := cache.Aside(ctx, cache.CategoryKey(categoryID), &category, cache.CategoryTTL, func() error {
		found, err := r.table.Get(ctx, categoryID)
		if err != nil {
			return err
		}
		category = *found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := cache.Aside(ctx, cache.CategoryListKey, &categories, cache.CategoryListTTL, func() error {
		var err error
		categories, err = r.table.Scan(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newestFirst(categories, func(c *models.Category) int64 { return c.CreatedAt }), nil
}

func (r *categoryRepository) FindByTitle(ctx context.Context, title string) (*models.Category, error) {
	categories, err := r.table.Scan(ctx)
	if err != nil {
		return nil, err
	}
	want := strings.TrimSpace(title)
	for i := range categories {
		if strings.EqualFold(strings.TrimSpace(categories[i].Title), want) {
			return &categories[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	if err := r.table.Create(ctx, category); err != nil {
		return err
	}
	cache.InvalidateCategories(ctx)
	return nil
}
