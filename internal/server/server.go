// Package server contains the HTTP handlers that render the site's pages.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/mifthebest/hw05-final/internal/cache"
	"github.com/mifthebest/hw05-final/internal/config"
	"github.com/mifthebest/hw05-final/internal/database"
	"github.com/mifthebest/hw05-final/internal/middleware"
	"github.com/mifthebest/hw05-final/internal/repository"
	"github.com/mifthebest/hw05-final/internal/service"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       *session.Store
	pageCache      cache.PageCache

	userRepo    repository.UserRepository
	groupRepo   repository.GroupRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	followRepo  repository.FollowRepository

	feedService    *service.FeedService
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	authService    *service.AuthService
}

// NewServer creates a server instance, establishing the database and
// Redis connections itself.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient()), nil
}

// NewServerWithDeps creates a Server using already-initialized
// dependencies. Tests use this with an in-memory database and miniredis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("yatube"),
		userRepo:       repository.NewUserRepository(db),
		groupRepo:      repository.NewGroupRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		followRepo:     repository.NewFollowRepository(db),
	}

	s.feedService = service.NewFeedService(s.postRepo)
	s.postService = service.NewPostService(s.postRepo, s.groupRepo)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo)
	s.followService = service.NewFollowService(s.followRepo, s.userRepo)
	s.authService = service.NewAuthService(s.userRepo, cfg.SessionSecret)

	// Rendered pages and sessions live in Redis when it is up. Without
	// Redis both fall back to process memory.
	var sessionStorage fiber.Storage
	if redisClient != nil {
		s.pageCache = cache.NewRedisPageCache(redisClient)
		sessionStorage = cache.NewRedisStorage(redisClient)
	} else {
		s.pageCache = cache.NewMemoryPageCache()
		sessionStorage = cache.NewMemoryStorage()
	}
	s.sessions = session.New(session.Config{
		Storage:        sessionStorage,
		Expiration:     24 * time.Hour,
		KeyLookup:      "cookie:session_id",
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})

	return s
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// After requestid and context middleware so log lines carry the request id.
	app.Use(middleware.StructuredLogger())

	app.Use(s.LoadUser)
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Uploaded images
	app.Static("/media", s.config.MediaRoot)

	// Auth
	auth := app.Group("/auth")
	auth.Get("/signup/", s.SignupPage)
	auth.Post("/signup/", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Get("/login/", s.LoginPage)
	auth.Post("/login/", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout/", s.Logout)

	// Static pages
	app.Get("/about/author/", s.AboutAuthor)
	app.Get("/about/tech/", s.AboutTech)

	// Post listings
	app.Get("/", s.Index)
	app.Get("/group/:slug/", s.GroupPosts)
	app.Get("/profile/:username/", s.Profile)
	app.Get("/follow/", s.AuthRequired, s.FollowIndex)

	// Posts and comments
	app.Get("/create/", s.AuthRequired, s.PostCreatePage)
	app.Post("/create/", s.AuthRequired, s.PostCreate)
	app.Get("/posts/:id/", s.PostDetail)
	app.Get("/posts/:id/edit/", s.AuthRequired, s.PostEditPage)
	app.Post("/posts/:id/edit/", s.AuthRequired, s.PostEdit)
	app.Post("/posts/:id/comment/", s.AuthRequired, middleware.RateLimit(
		s.redis, 30, time.Minute, "comment"), s.AddComment)

	// Follow toggles. GET is the canonical form, POST keeps the
	// profile-page forms working.
	app.Get("/profile/:username/follow/", s.AuthRequired, s.Follow)
	app.Post("/profile/:username/follow/", s.AuthRequired, s.Follow)
	app.Get("/profile/:username/unfollow/", s.AuthRequired, s.Unfollow)
	app.Post("/profile/:username/unfollow/", s.AuthRequired, s.Unfollow)

	// Every unmatched path gets the custom 404 page.
	app.Use(s.NotFound)
}

// Shutdown releases the server's connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			return err
		}
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LivenessCheck reports that the process is up.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// ReadinessCheck reports whether the database and Redis are reachable.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(c.Context()) != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "database unavailable"})
	}
	if s.redis != nil {
		if err := s.redis.Ping(c.Context()).Err(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "redis unavailable"})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
