// Command seed fills the configured backends with demo cookbook data.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"cookbook/internal/config"
	"cookbook/internal/repository"
	"cookbook/internal/seed"
	"cookbook/internal/server"
	"cookbook/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	numUsers := flag.Int("users", 5, "Number of users to create")
	postsPerUser := flag.Int("posts", 3, "Number of recipes per user")
	commentsPerPost := flag.Int("comments", 3, "Number of comments per recipe")
	fakerSeed := flag.Int64("seed", 0, "Seed for reproducible content (0 = random)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production environment")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	b, err := server.OpenBackends(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open backends: %v", err)
	}
	defer func() {
		if b.Close != nil {
			_ = b.Close(context.Background())
		}
	}()

	posts := repository.NewPostRepository(b.Posts)
	comments := repository.NewCommentRepository(b.Comments)
	seeder := seed.NewSeeder(seed.Services{
		Users:      service.NewUserService(repository.NewUserRepository(b.Users), b.Identity, b.Media),
		Categories: service.NewCategoryService(repository.NewCategoryRepository(b.Categories)),
		Posts:      service.NewPostService(posts, comments, b.Media),
		Comments:   service.NewCommentService(comments, posts),
	}, seed.Options{
		NumUsers:        *numUsers,
		PostsPerUser:    *postsPerUser,
		CommentsPerPost: *commentsPerPost,
		Seed:            *fakerSeed,
	})

	res, err := seeder.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d categories, %d recipes and %d comments",
		len(res.Users), len(res.Categories), len(res.Posts), res.Comments)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
