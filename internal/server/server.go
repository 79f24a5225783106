// Package server contains the HTTP handlers and wiring of the blog API.
package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/featureflags"
	"inkwell/internal/identity"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/moderation"
	"inkwell/internal/notifications"
	"inkwell/internal/ratelimit"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "inkwell-api"

// Server holds all dependencies and provides handlers
type Server struct {
	config       *config.Config
	db           *gorm.DB
	redis        *redis.Client
	app          *fiber.App
	shutdownCtx  context.Context
	shutdownFn   context.CancelFunc
	auth         *identity.Authenticator
	featureFlags *featureflags.Manager
	limiter      ratelimit.Limiter
	memLimiter   *ratelimit.MemoryLimiter
	localBus     *notifications.LocalBroadcaster

	chatPolicy      ratelimit.Policy
	commentPolicy   ratelimit.Policy
	subscribePolicy ratelimit.Policy

	postService         *service.PostService
	engagementService   *service.EngagementService
	commentService      *service.CommentService
	chatService         *service.ChatService
	subscriptionService *service.SubscriptionService
	adminService        *service.AdminService
	scheduler           *service.PublishScheduler
}

// NewServer creates a Server using already-initialized dependencies. redisClient may
// be nil; caching, invalidation and Redis broadcast then become no-ops.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	rules, err := moderationRules(cfg)
	if err != nil {
		return nil, err
	}
	filter := moderation.NewFilter(rules)

	flags := featureflags.NewManager(cfg.FeatureFlags)
	if _, set := flags.Raw()[featureflags.CommentModeration]; !set && cfg.ModerateComments {
		flags.Set(featureflags.CommentModeration, "on")
	}

	s := &Server{
		config:       cfg,
		db:           db,
		redis:        redisClient,
		featureFlags: flags,
		auth: identity.NewAuthenticator(identity.AuthenticatorConfig{
			AdminSecret:       cfg.AdminSecret,
			AdminPassword:     cfg.AdminPassword,
			AdminPasswordHash: cfg.AdminPasswordHash,
			AdminUserIDs:      cfg.AdminUserIDList(),
			SessionTTL:        cfg.AdminSessionTTL(),
		}, identity.NewTokenIssuer(cfg.JWTSecret)),
		chatPolicy: ratelimit.Policy{
			Name: "chat", Max: cfg.ChatRateLimit, Window: time.Duration(cfg.ChatRateWindowSeconds) * time.Second,
		},
		commentPolicy: ratelimit.Policy{
			Name: "comment", Max: cfg.CommentRateLimit, Window: time.Duration(cfg.CommentRateWindowSeconds) * time.Second,
		},
		subscribePolicy: ratelimit.Policy{
			Name: "subscribe", Max: cfg.SubscribeRateLimit, Window: time.Duration(cfg.SubscribeRateWindowSeconds) * time.Second,
		},
	}

	if cfg.RateLimitEnabled {
		if cfg.RateLimitBackend == "redis" && redisClient != nil {
			s.limiter = ratelimit.NewRedisLimiter(redisClient, ratelimit.FailOpen)
		} else {
			s.memLimiter = ratelimit.NewMemoryLimiter()
			s.limiter = s.memLimiter
		}
	}

	var broadcaster notifications.Broadcaster
	if cfg.BroadcastBackend == "local" {
		s.localBus = notifications.NewLocalBroadcaster()
		broadcaster = s.localBus
	} else {
		broadcaster = notifications.NewRedisBroadcaster(redisClient)
	}

	postRepo := repository.NewPostRepository(db)
	invalidator := cache.NewInvalidator(redisClient)
	s.postService = service.NewPostService(postRepo, service.PostServiceConfig{
		Cache:       cache.NewStore(redisClient),
		CacheTTL:    cfg.PostCacheTTL(),
		Invalidator: invalidator,
		Broadcaster: broadcaster,
	})
	s.engagementService = service.NewEngagementService(postRepo,
		repository.NewLikeRepository(db), repository.NewShareRepository(db), invalidator)
	s.commentService = service.NewCommentService(repository.NewCommentRepository(db), postRepo,
		filter, flags, broadcaster, invalidator)
	s.chatService = service.NewChatService(repository.NewChatRepository(db), filter, broadcaster)
	s.subscriptionService = service.NewSubscriptionService(repository.NewSubscriberRepository(db), flags)
	s.adminService = service.NewAdminService(db)
	s.scheduler = service.NewPublishScheduler(s.postService, cfg.SweepInterval())

	return s, nil
}

func moderationRules(cfg *config.Config) (moderation.Rules, error) {
	rules := moderation.Rules{
		MaxLength:     cfg.ModerationMaxLength,
		CapsRatio:     cfg.ModerationCapsRatio,
		CapsMinLength: cfg.ModerationCapsMinLength,
		MaxRepeat:     cfg.ModerationMaxRepeat,
		Denylist:      cfg.DenylistTerms(),
	}
	if strings.TrimSpace(cfg.ModerationRulesFile) == "" {
		return rules, nil
	}
	loaded, err := moderation.LoadRules(cfg.ModerationRulesFile, rules)
	if err != nil {
		return moderation.Rules{}, fmt.Errorf("load moderation rules: %w", err)
	}
	return loaded, nil
}

// App builds the Fiber application on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName: "Inkwell API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok && fe.Code < fiber.StatusInternalServerError {
				return models.RespondWithError(c, fe.Code, fe)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Identity first so tracing and logging can attribute the request.
	app.Use(middleware.Identify(s.auth))
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	middleware.RegisterMetrics(app, serviceName)

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Client-ID, X-Admin-Secret",
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	api := app.Group("/api")
	api.Get("/client-id", s.GetClientID)
	api.Get("/features", s.GetFeatureFlags)
	api.Post("/admin/auth", s.AdminLogin)
	api.Post("/auth/validate-admin", s.ValidateAdmin)

	byActor := middleware.KeyByActor
	byIP := middleware.KeyByIP

	// Static /posts/* segments before /posts/:id.
	posts := api.Group("/posts")
	posts.Get("/", s.ListPosts)
	posts.Post("/", middleware.RequireAdmin, s.CreatePost)
	posts.Post("/publish-due", middleware.RequireAdmin, s.PublishDue)
	posts.Get("/:id/like", middleware.RequireActor, s.GetLikeStatus)
	posts.Post("/:id/like", middleware.RequireActor, s.ToggleLike)
	posts.Post("/:id/share", s.SharePost)
	posts.Get("/:id/comments", s.ListComments)
	posts.Post("/:id/comments", middleware.RequireActor,
		middleware.RateLimit(s.limiter, s.commentPolicy, byActor), s.CreateComment)
	posts.Post("/:id/publish", middleware.RequireAdmin, s.PublishPost)
	posts.Post("/:id/unpublish", middleware.RequireAdmin, s.UnpublishPost)
	posts.Get("/:id", s.GetPost)
	posts.Patch("/:id", middleware.RequireAdmin, s.UpdatePost)
	posts.Delete("/:id", middleware.RequireAdmin, s.DeletePost)

	api.Delete("/comments/:id", middleware.RequireActor, s.DeleteComment)

	chat := api.Group("/chat")
	chat.Get("/messages", s.GetChatHistory)
	chat.Post("/messages", middleware.RequireActor,
		middleware.RateLimit(s.limiter, s.chatPolicy, byActor), s.SendChatMessage)
	chat.Delete("/messages/:id", middleware.RequireActor, s.DeleteChatMessage)
	chat.Get("/presence", s.GetOnline)
	chat.Post("/presence", middleware.RequireActor, s.Heartbeat)

	api.Post("/mailing-list/subscribe",
		middleware.RateLimit(s.limiter, s.subscribePolicy, byIP), s.Subscribe)

	admin := api.Group("/admin", middleware.RequireAdmin)
	admin.Get("/posts", s.ListAllPosts)
	admin.Get("/overview", s.GetAdminOverview)
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   nowUTC(),
	})
}

// ReadinessCheck reports 503 when the database is down. Redis is optional, so a missing
// client is reported but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
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
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": nowUTC(),
	})
}

// Start runs the background workers and serves HTTP until the listener closes.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	if s.memLimiter != nil {
		go s.memLimiter.Run(ctx, time.Duration(s.config.RateLimitSweepSeconds)*time.Second)
	}
	if s.config.SweepEnabled {
		go s.scheduler.Run(ctx)
	}

	app := s.App()
	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stops the limiter sweeper and the publish scheduler.
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if s.localBus != nil {
		if err := s.localBus.Close(); err != nil {
			log.Printf("error closing local broadcaster: %v", err)
		}
	}

	if err := database.Close(s.db); err != nil {
		log.Printf("error closing sql DB: %v", err)
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
