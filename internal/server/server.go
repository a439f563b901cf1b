// Package server contains the HTTP handlers for the feed and social graph API.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "yatube/docs" // swagger docs
	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/notifications"
	"yatube/internal/repository"
	"yatube/internal/service"
	"yatube/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the already-initialized collaborators a Server is built from.
// Optional fields fall back to SQL, Redis or in-process defaults.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client

	// FollowRepo overrides the SQL follow store, e.g. with the Neo4j one.
	FollowRepo repository.FollowRepository
	PageCache  *cache.PageCache
	Storage    *storage.LocalStorage
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus

	userRepo   repository.UserRepository
	groupRepo  repository.GroupRepository
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository

	pageCache *cache.PageCache
	storage   *storage.LocalStorage
	notifier  *notifications.Notifier
	feedHub   *notifications.FeedHub

	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	feedService    *service.FeedService
}

// NewServer wires repositories and services over deps.
func NewServer(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	if deps.DB == nil {
		return nil, errors.New("database is required")
	}
	cfg := deps.Config

	userRepo := repository.NewUserRepository(deps.DB)
	groupRepo := repository.NewGroupRepository(deps.DB)
	postRepo := repository.NewPostRepository(deps.DB)
	commentRepo := repository.NewCommentRepository(deps.DB)
	followRepo := deps.FollowRepo
	if followRepo == nil {
		followRepo = repository.NewFollowRepository(deps.DB)
	}

	pageCache := deps.PageCache
	if pageCache == nil {
		ttl := time.Duration(cfg.IndexCacheTTLSeconds) * time.Second
		if deps.Redis != nil {
			pageCache = cache.NewPageCache(cache.NewRedisStore(deps.Redis), ttl)
		} else {
			pageCache = cache.NewPageCache(cache.NewMemoryStore(), ttl)
		}
	}

	store := deps.Storage
	if store == nil {
		store = storage.NewLocalStorage(cfg.MediaRoot, cfg.MaxUploadSizeMB)
	}

	var notifier *notifications.Notifier
	var publisher service.PostEventPublisher
	if deps.Redis != nil {
		notifier = notifications.NewNotifier(deps.Redis)
		publisher = notifier
	}

	return &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("yatube-api"),
		userRepo:       userRepo,
		groupRepo:      groupRepo,
		postRepo:       postRepo,
		followRepo:     followRepo,
		pageCache:      pageCache,
		storage:        store,
		notifier:       notifier,
		feedHub:        notifications.NewFeedHub(followRepo),
		postService:    service.NewPostService(postRepo, groupRepo, commentRepo, publisher),
		commentService: service.NewCommentService(commentRepo, postRepo),
		followService:  service.NewFollowService(followRepo, userRepo),
		feedService:    service.NewFeedService(postRepo, groupRepo, userRepo, followRepo, cfg.PostsPerPage),
	}, nil
}

// PageCache exposes the index cache for admin tooling.
func (s *Server) PageCache() *cache.PageCache {
	return s.pageCache
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
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
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	if root := s.storage.Root(); root != "" {
		app.Static("/media", root)
	}

	secret := s.config.JWTSecret
	api := app.Group("/api", middleware.OptionalAuth(secret))
	auth := middleware.AuthRequired(secret)

	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/groups", s.ListGroups)
	api.Get("/group/:slug", s.GetGroupFeed)
	api.Get("/follow", auth, s.GetFollowFeed)
	api.Get("/follow/ws", auth, requireUpgrade, s.FollowFeedSocket())

	profile := api.Group("/profile")
	profile.Post("/:username/follow", auth, middleware.RateLimit(
		s.redis, 30, time.Minute, "follow"), s.FollowAuthor)
	profile.Post("/:username/unfollow", auth, s.UnfollowAuthor)
	profile.Get("/:username", s.GetProfile)

	posts := api.Group("/posts")
	posts.Get("/", s.GetIndex)
	posts.Post("/", auth, middleware.RateLimit(
		s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/comments", auth, middleware.RateLimit(
		s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", auth, s.UpdatePost)
	posts.Delete("/:id", auth, s.DeletePost)
}

// NewApp builds a Fiber app with middleware and routes but does not listen.
func (s *Server) NewApp() *fiber.App {
	bodyLimit := 4 * 1024 * 1024
	if s.config.MaxUploadSizeMB > 0 {
		bodyLimit = (s.config.MaxUploadSizeMB + 1) * 1024 * 1024
	}
	app := fiber.New(fiber.Config{
		AppName:   "yatube API",
		BodyLimit: bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: codeForStatus(fe.Code)})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional:
// when it is not configured the cache runs in-process and the API is still ready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "not_configured"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.NewApp()
	middleware.Logger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown closes feed sockets, then stops accepting requests and waits for
// in-flight ones. Connections in Deps belong to the caller and stay open.
func (s *Server) Shutdown(ctx context.Context) error {
	_ = s.feedHub.Shutdown(ctx)
	if s.app == nil {
		return nil
	}
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	middleware.Logger.Info("server shutdown complete")
	return nil
}
