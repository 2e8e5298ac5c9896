// Package seed creates demo users, categories, recipes and comments for
// development environments. Everything goes through the service layer so the
// data obeys the same ownership and media rules as API traffic.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cookbook/internal/middleware"
	"cookbook/internal/models"
	"cookbook/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultPassword is given to every seeded account.
const DefaultPassword = "Cookbook#2024"

var courses = []string{"Breakfast", "Lunch", "Dinner", "Snack", "Dessert", "Drinks"}

// Options controls how much data the Seeder creates.
type Options struct {
	NumUsers        int
	PostsPerUser    int
	CommentsPerPost int
	// Seed makes the generated content reproducible when non-zero.
	Seed int64
}

// Services are the operations the Seeder writes through.
type Services struct {
	Users      *service.UserService
	Categories *service.CategoryService
	Posts      *service.PostService
	Comments   *service.CommentService
}

// Result summarizes a seeding run.
type Result struct {
	Users      []models.User
	Categories []models.Category
	Posts      []models.Post
	Comments   int
}

// Seeder populates a cookbook with generated content.
type Seeder struct {
	svc   Services
	opts  Options
	faker *gofakeit.Faker
}

// NewSeeder creates a Seeder. Zero option values fall back to small defaults.
func NewSeeder(svc Services, opts Options) *Seeder {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 5
	}
	if opts.PostsPerUser <= 0 {
		opts.PostsPerUser = 3
	}
	if opts.CommentsPerPost < 0 {
		opts.CommentsPerPost = 0
	}
	return &Seeder{svc: svc, opts: opts, faker: gofakeit.New(opts.Seed)}
}

// Run creates the categories, then the users, their recipes and comments from other users.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	categories, err := s.SeedCategories(ctx)
	if err != nil {
		return nil, err
	}
	res.Categories = categories
	middleware.Logger.Info("seeded categories", slog.Int("count", len(categories)))

	for i := 0; i < s.opts.NumUsers; i++ {
		user, email, err := s.seedUser(ctx, i)
		if err != nil {
			return nil, err
		}
		res.Users = append(res.Users, *user)

		for j := 0; j < s.opts.PostsPerUser; j++ {
			category := categories[s.faker.Number(0, len(categories)-1)]
			post, err := s.seedPost(ctx, email, category.CategoryID)
			if err != nil {
				return nil, err
			}
			res.Posts = append(res.Posts, *post)
		}
	}
	middleware.Logger.Info("seeded users and recipes",
		slog.Int("users", len(res.Users)),
		slog.Int("posts", len(res.Posts)),
	)

	if len(res.Users) > 1 {
		for _, post := range res.Posts {
			n, err := s.seedComments(ctx, post, res.Users)
			if err != nil {
				return nil, err
			}
			res.Comments += n
		}
	}
	middleware.Logger.Info("seeded comments", slog.Int("count", res.Comments))

	return res, nil
}

// SeedCategories creates one category per course, reusing any that already exist.
func (s *Seeder) SeedCategories(ctx context.Context) ([]models.Category, error) {
	for _, title := range courses {
		_, err := s.svc.Categories.CreateCategory(ctx, service.CreateCategoryInput{Title: title})
		if err != nil && !isConflict(err) {
			return nil, fmt.Errorf("create category %q: %w", title, err)
		}
	}

	all, err := s.svc.Categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if len(all) == 0 {
		return nil, errors.New("no categories available")
	}
	return all, nil
}

func (s *Seeder) seedUser(ctx context.Context, n int) (*models.User, string, error) {
	first := strings.ToLower(s.faker.FirstName())
	name := fmt.Sprintf("%s_%d", first, s.faker.Number(100, 999))
	email := fmt.Sprintf("%s+%d@cookbook.test", name, n)

	_, user, err := s.svc.Users.SignUp(ctx, service.SignUpInput{
		UserName: name,
		Email:    email,
		Password: DefaultPassword,
	})
	if err != nil {
		return nil, "", fmt.Errorf("sign up %s: %w", email, err)
	}

	user, err = s.svc.Users.UpdateUser(ctx, service.UpdateUserInput{
		CallerEmail: email,
		UserID:      user.UserID,
		Description: s.faker.Sentence(10),
		Image:       s.image("avatar.png", 150, 150),
	})
	if err != nil {
		return nil, "", fmt.Errorf("profile %s: %w", email, err)
	}
	return user, email, nil
}

func (s *Seeder) seedPost(ctx context.Context, email, categoryID string) (*models.Post, error) {
	dish := s.dish()
	post, err := s.svc.Posts.CreatePost(ctx, service.CreatePostInput{
		AuthorEmail: email,
		Title:       dish,
		Category:    categoryID,
		Ingredients: s.ingredients(),
		Recipe:      s.faker.Paragraph(1, 4, 8, "\n"),
		Image:       s.image("dish.png", 800, 600),
	})
	if err != nil {
		return nil, fmt.Errorf("create post %q: %w", dish, err)
	}
	return post, nil
}

func (s *Seeder) seedComments(ctx context.Context, post models.Post, users []models.User) (int, error) {
	created := 0
	for i := 0; i < s.opts.CommentsPerPost; i++ {
		commenter := users[s.faker.Number(0, len(users)-1)]
		if commenter.UserID == post.Author {
			continue
		}
		_, err := s.svc.Comments.CreateComment(ctx, service.CreateCommentInput{
			AuthorEmail: strings.TrimPrefix(commenter.UserID, models.UserPrefix),
			PostID:      post.PostID,
			Text:        s.faker.Sentence(s.faker.Number(4, 16)),
		})
		if err != nil {
			return created, fmt.Errorf("comment on %s: %w", post.PostID, err)
		}
		created++
	}
	return created, nil
}

func (s *Seeder) dish() string {
	switch s.faker.Number(0, 4) {
	case 0:
		return s.faker.Breakfast()
	case 1:
		return s.faker.Lunch()
	case 2:
		return s.faker.Dinner()
	case 3:
		return s.faker.Snack()
	default:
		return s.faker.Dessert()
	}
}

func (s *Seeder) ingredients() string {
	n := s.faker.Number(3, 8)
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, strings.ToLower(s.faker.Fruit()))
	}
	return strings.Join(items, ", ")
}

func (s *Seeder) image(filename string, width, height int) *service.ImageUpload {
	return &service.ImageUpload{
		File:     bytes.NewReader(s.faker.ImagePng(width, height)),
		Filename: filename,
	}
}

func isConflict(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeConflict
}
