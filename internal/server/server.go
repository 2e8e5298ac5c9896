// Package server contains the HTTP handlers and routing of the cookbook API.
package server

import (
	"context"
	"fmt"
	"time"

	"cookbook/internal/config"
	"cookbook/internal/identity"
	"cookbook/internal/middleware"
	"cookbook/internal/repository"
	"cookbook/internal/service"
	"cookbook/internal/store"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

// Banner is the body of GET /.
const Banner = "POC-Cookbook-API listening through Lambda"

// Server holds all dependencies and provides handlers
type Server struct {
	config          *config.Config
	redis           *redis.Client
	promMiddleware  *fiberprometheus.FiberPrometheus
	verifier        identity.Verifier
	pingers         map[string]store.Pinger
	closeBackends   func(context.Context) error
	authService     *service.AuthService
	userService     *service.UserService
	postService     *service.PostService
	categoryService *service.CategoryService
	commentService  *service.CommentService
}

// NewServer creates a new server instance with all dependencies
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	backends, err := OpenBackends(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("backend initialization failed: %w", err)
	}
	logBackends(cfg)
	return NewServerWithDeps(cfg, backends)
}

// NewServerWithDeps creates a Server using already-initialized backends.
// Use this in tests or when a bootstrap layer has connected the backends itself.
func NewServerWithDeps(cfg *config.Config, b *Backends) (*Server, error) {
	if b.Users == nil || b.Posts == nil || b.Categories == nil || b.Comments == nil {
		return nil, fmt.Errorf("server: every store table is required")
	}
	if b.Identity == nil || b.Verifier == nil || b.Media == nil {
		return nil, fmt.Errorf("server: identity, verifier and media backends are required")
	}

	userRepo := repository.NewUserRepository(b.Users)
	postRepo := repository.NewPostRepository(b.Posts)
	categoryRepo := repository.NewCategoryRepository(b.Categories)
	commentRepo := repository.NewCommentRepository(b.Comments)

	server := &Server{
		config:          cfg,
		redis:           b.Redis,
		promMiddleware:  middleware.InitMetrics("cookbook-api"),
		verifier:        b.Verifier,
		pingers:         map[string]store.Pinger{},
		closeBackends:   b.Close,
		authService:     service.NewAuthService(b.Identity),
		userService:     service.NewUserService(userRepo, b.Identity, b.Media),
		postService:     service.NewPostService(postRepo, commentRepo, b.Media),
		categoryService: service.NewCategoryService(categoryRepo),
		commentService:  service.NewCommentService(commentRepo, postRepo),
	}
	// one probe per table is enough to tell the store is reachable
	if p, ok := b.Posts.(store.Pinger); ok {
		server.pingers["store"] = p
	}

	return server, nil
}

// Close releases the backend connections.
func (s *Server) Close(ctx context.Context) error {
	if s.closeBackends == nil {
		return nil
	}
	return s.closeBackends(ctx)
}

// NewApp returns a Fiber app configured with the server's limits, middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "cookbook-api",
		BodyLimit:    (s.config.ImageMaxUploadSizeMB + 1) * 1024 * 1024,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: s.errorHandler,
		// user keys embed an email address
		UnescapePath: true,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/", s.Root)

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	auth := middleware.AuthRequired(s.verifier)

	app.Post("/auth", middleware.RateLimit(s.redis, s.config.Env, 10, 5*time.Minute, "login"), s.Login)

	// Literal segments are registered before parameter routes.
	users := app.Group("/user")
	users.Get("/", s.GetUsers)
	users.Get("/current-user/me", auth, s.GetCurrentUser)
	users.Post("/", middleware.RateLimit(s.redis, s.config.Env, 3, 10*time.Minute, "signup"), s.CreateUser)
	users.Get("/:userId", s.GetUser)
	users.Patch("/:userId", auth, s.UpdateUser)

	posts := app.Group("/post")
	posts.Get("/", s.GetPosts)
	posts.Get("/current-user/me", auth, s.GetMyPosts)
	posts.Get("/user/:userId", s.GetUserPosts)
	posts.Get("/category/:categoryId", s.GetCategoryPosts)
	posts.Post("/", auth, middleware.RateLimit(s.redis, s.config.Env, 5, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Get("/:postId", s.GetPost)
	posts.Patch("/:postId", auth, s.UpdatePost)
	posts.Delete("/:postId", auth, s.DeletePost)

	categories := app.Group("/category")
	categories.Get("/", s.GetCategories)
	categories.Post("/", auth, s.CreateCategory)
	categories.Get("/:categoryId", s.GetCategory)

	comments := app.Group("/comment")
	comments.Post("/", auth, middleware.RateLimit(s.redis, s.config.Env, 10, time.Minute, "create_comment"), s.CreateComment)
	comments.Get("/:postId", s.GetComments)
	comments.Delete("/:commentId", auth, s.DeleteComment)

	app.Use(s.NotFound)
}

// Root answers GET / with the service banner.
func (s *Server) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": Banner})
}

// NotFound is the fallback for every unmatched method and path.
func (s *Server) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not Found"})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := fiber.Map{}
	healthy := true
	for name, p := range s.pingers {
		status := "healthy"
		if err := p.Ping(ctx); err != nil {
			status = "unhealthy"
			healthy = false
		}
		checks[name] = status
	}

	// Redis backs rate limits and the category cache; both degrade without it.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}
	checks["redis"] = redisStatus

	status := fiber.StatusOK
	overallStatus := "healthy"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": checks,
		"time":   time.Now(),
	})
}
