// Package server contains the HTTP handlers, authentication and routes of the API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "prosphere/docs" // swagger docs
	"prosphere/internal/cache"
	"prosphere/internal/config"
	"prosphere/internal/database"
	"prosphere/internal/featureflags"
	"prosphere/internal/identity"
	"prosphere/internal/middleware"
	"prosphere/internal/models"
	"prosphere/internal/observability"
	"prosphere/internal/repository"
	"prosphere/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config          *config.Config
	db              *gorm.DB
	redis           *redis.Client
	app             *fiber.App
	promMiddleware  *fiberprometheus.FiberPrometheus
	tokens          *identity.TokenVerifier
	webhooks        *identity.WebhookVerifier
	featureFlags    *featureflags.Manager
	postService     *service.PostService
	userService     *service.UserService
	interestService *service.InterestService
}

// NewServer connects to the database and Redis described by cfg and builds
// the server with a Clerk client when a secret key is configured.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return NewServerWithDeps(cfg, db, cache.Connect(cfg.RedisURL), ClerkFromConfig(cfg))
}

// ClerkFromConfig builds the identity client, or returns nil when no secret
// key is configured.
func ClerkFromConfig(cfg *config.Config) identity.Client {
	if cfg.ClerkSecretKey == "" {
		return nil
	}
	return identity.NewClerkClient(identity.ClerkConfig{
		SecretKey: cfg.ClerkSecretKey,
		BaseURL:   cfg.ClerkAPIURL,
		RPS:       cfg.ClerkAPIRPS,
		Burst:     cfg.ClerkAPIBurst,
	})
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient and idp may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, idp identity.Client) (*Server, error) {
	tokens, err := identity.NewTokenVerifier(cfg.ClerkJWTPublicKey, cfg.JWTSecret, cfg.AuthorizedParties())
	if err != nil {
		return nil, fmt.Errorf("token verifier: %w", err)
	}

	var webhooks *identity.WebhookVerifier
	if cfg.ClerkWebhookSecret != "" {
		webhooks, err = identity.NewWebhookVerifier(cfg.ClerkWebhookSecret)
		if err != nil {
			return nil, fmt.Errorf("webhook verifier: %w", err)
		}
	}

	store := repository.NewStore(db)
	return &Server{
		config:          cfg,
		db:              db,
		redis:           redisClient,
		promMiddleware:  middleware.InitMetrics(observability.ServiceName),
		tokens:          tokens,
		webhooks:        webhooks,
		featureFlags:    featureflags.NewManager(cfg.FeatureFlags),
		postService:     service.NewPostService(store),
		userService:     service.NewUserService(store, idp, redisClient, cfg.ClerkOrgID),
		interestService: service.NewInterestService(store),
	}, nil
}

// App returns the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "ProSphere API",
		BodyLimit:    2 * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	return respondError(c, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// tracing stores the trace id in locals, so it runs before the context middleware
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so browser clients still get CORS headers on 429s.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://localhost:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
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

	app.Use(middleware.QueryTimeout(s.config.QueryTimeout()))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "ProSphere Backend Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Posts. Specific paths are registered before /:id.
	posts := api.Group("/posts")
	posts.Get("/feed", s.OptionalAuth(), s.GetFeed)
	posts.Get("/user/:userId", s.OptionalAuth(), s.GetUserPosts)
	posts.Put("/comments/:commentId", s.AuthRequired(), s.UpdateComment)
	posts.Delete("/comments/:commentId", s.AuthRequired(), s.DeleteComment)
	posts.Get("/:postId/reactions", s.GetReactions)
	posts.Post("/:postId/reactions", s.AuthRequired(), s.AddReaction)
	posts.Delete("/:postId/reactions", s.AuthRequired(), s.RemoveReaction)
	posts.Get("/:postId/comments", s.GetComments)
	posts.Post("/:postId/comments", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.AddComment)
	posts.Get("/:id", s.OptionalAuth(), s.GetPost)
	posts.Post("/", s.AuthRequired(), middleware.RateLimit(
		s.redis, 5, time.Minute, "create_post"), s.CreatePost)
	posts.Put("/:id", s.AuthRequired(), s.UpdatePost)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)

	// Users. The webhook authenticates by signature, not by session.
	users := api.Group("/users")
	users.Post("/clerk-webhook", s.ClerkWebhook)
	authed := users.Group("", s.AuthRequired())
	authed.Get("/me", s.GetMyProfile)
	authed.Put("/me", s.UpdateMyProfile)
	authed.Get("/me/contact", s.GetMyContactInfo)
	authed.Get("/id/:id", s.GetUserProfile)
	authed.Get("/search", middleware.RateLimit(
		s.redis, 30, time.Minute, "user_search"), s.SearchUsers)
	authed.Post("/public-profiles", s.GetPublicProfiles)
	authed.Get("/all", s.AdminRequired(), s.GetAllUsers)
	authed.Post("/seed", s.AdminRequired(), s.SeedTestUsers)
	authed.Delete("/seed", s.AdminRequired(), s.DeleteTestUsers)
	authed.Get("/test-check", s.AdminRequired(), s.CheckTestUsers)

	interests := api.Group("/interests")
	interests.Get("/all", s.GetInterests)
	interests.Get("/search", s.SearchInterests)
	interests.Get("/ids", s.GetInterestsByIDs)
	interestAdmin := interests.Group("", s.AuthRequired(), s.AdminRequired())
	interestAdmin.Post("/seed", s.SeedInterests)
	interestAdmin.Post("/", s.CreateInterest)
	interestAdmin.Put("/", s.UpdateInterest)
	interestAdmin.Delete("/:id", s.DeleteInterest)

	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings the database and Redis.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
	} else if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus != "healthy" {
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

// Start installs the routes and listens on the configured port. It blocks
// until the listener stops.
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests and closes the Redis client. The
// database handle belongs to the caller.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}
	middleware.Logger.Info("Server shutdown complete")
	return nil
}
