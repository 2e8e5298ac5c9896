package repository

import (
	"context"

	"cookbook/internal/models"
	"cookbook/internal/patch"
	"cookbook/internal/store"
)

// UserRepository defines the interface for user profile operations
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	// Update applies p to the profile owned by userID.
	Update(ctx context.Context, userID string, p *patch.Patch) error
}

type userRepository struct {
	table store.Table[models.User]
}

// NewUserRepository creates a new user repository
func NewUserRepository(table store.Table[models.User]) UserRepository {
	return &userRepository{table: table}
}

func (r *userRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	return r.table.Get(ctx, userID)
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	users, err := r.table.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return newestFirst(users, func(u *models.User) int64 { return u.CreatedAt }), nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.table.Create(ctx, user)
}

func (r *userRepository) Update(ctx context.Context, userID string, p *patch.Patch) error {
	return r.table.Update(ctx, userID, p, store.Eq(models.UserKey, userID))
}
