// Package server contains the HTTP handlers for the blog API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "scriptorium/docs" // swagger docs
	"scriptorium/internal/auth"
	"scriptorium/internal/bootstrap"
	"scriptorium/internal/config"
	"scriptorium/internal/database"
	"scriptorium/internal/featureflags"
	"scriptorium/internal/middleware"
	"scriptorium/internal/models"
	"scriptorium/internal/observability"
	"scriptorium/internal/render"
	"scriptorium/internal/repository"
	"scriptorium/internal/service"

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

// postLifecycle is the part of service.PostService the handlers use.
type postLifecycle interface {
	CreateDraft(ctx context.Context, ownerID int64) (int64, error)
	Save(ctx context.Context, in service.SavePostInput) (*models.PostDetail, error)
	FetchDetail(ctx context.Context, id int64) (*models.PostDetail, error)
	FetchForEdit(ctx context.Context, id, userID int64) (*models.PostDetail, error)
	ListPosts(ctx context.Context, page, size int) ([]models.PostDetail, error)
	ListTags(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id, userID int64) error
}

// accounts is the part of service.UserService the handlers use.
type accounts interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	tokens         *auth.TokenIssuer
	featureFlags   *featureflags.Manager
	posts          postLifecycle
	accounts       accounts
	pageSize       int
}

// NewServer connects to the database and Redis and creates a server instance.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, rate limiting and logout revocation are
// then skipped.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	store := repository.NewStore(db)
	accountService := service.NewUserService(store.Users())

	pageSize := cfg.PostPageSize
	if pageSize <= 0 {
		pageSize = service.DefaultPageSize
	}

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("scriptorium-api"),
		tokens:         auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		posts:          service.NewPostService(store, render.NewMarkdown()),
		accounts:       accountService,
		pageSize:       pageSize,
	}, nil
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Scriptorium API",
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: s.errorHandler,
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// errorHandler is the single place failures become envelopes.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	appErr := models.MapRejection(c.UserContext(), middleware.Logger, err)
	observability.ErrorResponses.WithLabelValues(appErr.Kind.String()).Inc()

	status, envelope := models.WrapError(appErr)
	return c.Status(status).JSON(envelope)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
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
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.NewBusinessError("too many requests, please try again later")
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

	app.Get("/swagger/*", swagger.HandlerDefault)

	posts := app.Group("/post")
	posts.Get("/new", s.AuthRequired(), s.NewPost)
	posts.Post("/save", s.AuthRequired(), middleware.RateLimit(
		s.redis, 30, time.Minute, "save_post"), s.SavePost)
	posts.Get("/show/:id", s.ShowPost)
	posts.Get("/list/:page", s.ListPosts)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)

	app.Get("/tag/list", s.ListTags)

	users := app.Group("/user")
	users.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.Register)
	users.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	users.Post("/logout", s.Logout)
	users.Get("/me", s.AuthRequired(), s.Me)
	users.Get("/features", s.AuthRequired(), s.Features)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: the
// post cache falls back to the database when it is missing.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unhealthy"
	} else if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
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

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	app := s.NewApp()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
