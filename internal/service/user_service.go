package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"cookbook/internal/identity"
	"cookbook/internal/media"
	"cookbook/internal/middleware"
	"cookbook/internal/models"
	"cookbook/internal/patch"
	"cookbook/internal/repository"
	"cookbook/internal/store"
)

type UserService struct {
	userRepo repository.UserRepository
	provider identity.Provider
	uploader media.Uploader
}

type SignUpInput struct {
	UserName string
	Email    string
	Password string
}

// UpdateUserInput carries a profile update. Empty strings leave the field unchanged.
type UpdateUserInput struct {
	CallerEmail string
	UserID      string
	UserName    string
	Description string
	Image       *ImageUpload
}

func NewUserService(userRepo repository.UserRepository, provider identity.Provider, uploader media.Uploader) *UserService {
	return &UserService{
		userRepo: userRepo,
		provider: provider,
		uploader: uploader,
	}
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, models.NewUpstreamError("Could not list users", err)
	}
	return users, nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "User", userID, "read")
	}
	return user, nil
}

// CurrentUser returns the profile of the authenticated caller.
func (s *UserService) CurrentUser(ctx context.Context, email string) (*models.User, error) {
	return s.GetUser(ctx, models.DerivedIdentity(email))
}

// SignUp registers the account with the identity provider, stores the profile and logs the user in.
// The account is removed again when the profile cannot be stored.
func (s *UserService) SignUp(ctx context.Context, in SignUpInput) (string, *models.User, error) {
	email := models.NormalizeEmail(in.Email)

	if err := s.provider.SignUp(ctx, email, in.Password); err != nil {
		switch {
		case errors.Is(err, identity.ErrUserExists):
			return "", nil, models.NewConflictError("User already exists")
		case errors.Is(err, identity.ErrWeakPassword):
			return "", nil, models.NewFieldValidationError([]models.FieldError{{Field: "password", Message: "password does not satisfy the password policy"}})
		default:
			return "", nil, models.NewUpstreamError("Could not create user", err)
		}
	}

	user := &models.User{
		UserID:    models.DerivedIdentity(email),
		UserName:  strings.TrimSpace(in.UserName),
		CreatedAt: models.NowMillis(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if delErr := s.provider.DeleteUser(context.WithoutCancel(ctx), email); delErr != nil {
			middleware.Logger.ErrorContext(ctx, "sign-up rollback failed",
				slog.String("user_id", user.UserID),
				slog.String("error", delErr.Error()),
			)
		}
		if errors.Is(err, store.ErrConditionFailed) {
			return "", nil, models.NewConflictError("User already exists")
		}
		return "", nil, models.NewUpstreamError("Could not create user", err)
	}

	token, err := s.provider.Authenticate(ctx, email, in.Password)
	if err != nil {
		return "", nil, models.NewUpstreamError("User created but login failed", err)
	}
	return BearerPrefix + token, user, nil
}

// UpdateUser applies a partial profile update. Only the profile owner may update it.
// A new image replaces the old one, which is destroyed after the record is written.
func (s *UserService) UpdateUser(ctx context.Context, in UpdateUserInput) (*models.User, error) {
	existing, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, storeError(err, "User", in.UserID, "update")
	}
	if existing.UserID != models.DerivedIdentity(in.CallerEmail) {
		return nil, models.NewForbiddenError("You can only update your own profile")
	}

	p := patch.New().
		Set("userName", strings.TrimSpace(in.UserName)).
		Set("description", strings.TrimSpace(in.Description))
	if p.Empty() && in.Image == nil {
		return nil, models.NewValidationError("No fields to update")
	}

	var uploaded *media.Image
	if in.Image != nil {
		img, appErr := upload(ctx, s.uploader, media.FolderProfile, in.Image)
		if appErr != nil {
			return nil, appErr
		}
		uploaded = img
		p.Set("imageId", img.ID).Set("thumbUrl", img.ThumbURL).Set("imageUrl", img.ImageURL)
	}
	p.Set("updatedAt", models.NowMillis())

	if err := s.userRepo.Update(ctx, in.UserID, p); err != nil {
		if uploaded != nil {
			discardImage(ctx, s.uploader, uploaded.ID, "record_write_failed")
		}
		return nil, storeError(err, "User", in.UserID, "update")
	}
	if uploaded != nil && existing.ImageID != "" && existing.ImageID != uploaded.ID {
		discardImage(ctx, s.uploader, existing.ImageID, "replaced")
	}

	return s.GetUser(ctx, in.UserID)
}
