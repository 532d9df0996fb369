// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"opcdiary/internal/bootstrap"
	"opcdiary/internal/config"
	"opcdiary/internal/media"
	"opcdiary/internal/middleware"
	"opcdiary/internal/models"
	"opcdiary/internal/notifications"
	"opcdiary/internal/service"
	"opcdiary/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

const serviceName = "opcdiary-api"

// sessionSweepInterval is how often expired sessions are closed.
const sessionSweepInterval = time.Minute

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// initMetrics registers the HTTP collectors once per process.
func initMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	return prom
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	runtime        *bootstrap.Runtime
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	svcs           *service.Services
	sessions       *session.Registry
	hub            *notifications.Hub
	notifier       *notifications.Notifier
	encoder        *media.Encoder
}

// NewServer creates a new server instance over an initialized runtime.
func NewServer(cfg *config.Config, rt *bootstrap.Runtime) (*Server, error) {
	if rt == nil || rt.Repos == nil {
		return nil, errors.New("server requires an initialized runtime")
	}

	directory, err := service.LoadDirectory()
	if err != nil {
		return nil, err
	}
	svcs := service.New(rt.Repos, service.Options{
		Directory: directory,
		Diary:     service.DiaryOptions{PublishDelay: cfg.PublishDelay},
	})

	supervisor, err := session.NewSupervisor(cfg.SupervisorName, cfg.SupervisorPassword, 0)
	if err != nil {
		return nil, fmt.Errorf("supervisor credential: %w", err)
	}

	hub := notifications.NewHub()
	registry := session.NewRegistry(session.Options{
		Services:     svcs,
		Scanner:      notifications.NewScanner(rt.Repos.Messages, svcs.Graph),
		Hub:          hub,
		Supervisor:   supervisor,
		PollInterval: cfg.PollInterval,
	}, cfg.SessionTTL)

	middleware.InitMiddleware(cfg)

	shutdownCtx, shutdownFn := context.WithCancel(context.Background())
	return &Server{
		config:         cfg,
		runtime:        rt,
		redis:          rt.Redis,
		promMiddleware: initMetrics(),
		shutdownCtx:    shutdownCtx,
		shutdownFn:     shutdownFn,
		svcs:           svcs,
		sessions:       registry,
		hub:            hub,
		notifier:       notifications.NewNotifier(rt.Redis, hub),
		encoder: media.NewEncoder(media.Options{
			MaxUploadSizeMB: cfg.ImageMaxUploadSizeMB,
			MaxDimension:    cfg.ImageMaxDimension,
		}),
	}, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and identity
	app.Use(middleware.ContextMiddleware())

	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

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
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Get("/last-user", s.LastUser)
	auth.Post("/onboard", middleware.RateLimit(s.redis, 5, 10*time.Minute, "onboard"), s.Onboard)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", middleware.AuthRequired, s.Logout)

	// Registered before the protected group, whose middleware would demand a
	// header token.
	ws := api.Group("/ws", middleware.WebSocketAuthRequired, s.SessionRequired())
	ws.Get("/notifications", s.WebSocketUpgrade, s.NotificationsWebSocket())

	protected := api.Group("", middleware.AuthRequired, s.SessionRequired())

	sess := protected.Group("/session")
	sess.Get("/", s.GetSession)
	sess.Post("/visit/:name", s.VisitGuest)
	sess.Post("/impersonate/:name", s.SupervisorRequired(), s.Impersonate)
	sess.Post("/home", s.ReturnHome)

	users := protected.Group("/users")
	users.Get("/", s.GetUsers)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/:name", s.GetUser)
	users.Put("/:name", s.SupervisorRequired(), s.UpdateUser)
	users.Delete("/:name", s.SupervisorRequired(), s.DeleteUser)

	projects := protected.Group("/projects")
	projects.Get("/", s.GetProjects)
	projects.Post("/", s.CreateProject)
	projects.Post("/close", s.CloseProject)
	projects.Post("/:id/open", s.OpenProject)
	projects.Put("/:id/stats", s.UpdateStats)
	projects.Post("/:id/entries", s.PublishEntry)
	projects.Put("/:id/entries/:entryId", s.EditEntry)
	projects.Delete("/:id/entries/:entryId", s.DeleteEntry)
	projects.Post("/:id/entries/:entryId/comments", s.AddEntryComment)

	connections := protected.Group("/connections")
	connections.Get("/", s.GetConnections)
	connections.Get("/:name/status", s.GetConnectionStatus)
	connections.Post("/:name/toggle", middleware.RateLimit(s.redis, 30, time.Minute, "follow"), s.ToggleFollow)

	lists := protected.Group("/lists")
	lists.Get("/:kind", s.GetList)
	lists.Post("/:kind/:id/toggle", s.ToggleListItem)

	tracking := protected.Group("/supervisor/tracking", s.SupervisorRequired())
	tracking.Get("/", s.GetTracking)
	tracking.Post("/:name/toggle", s.ToggleTracking)

	messages := protected.Group("/messages")
	messages.Get("/supervisor", s.GetSupervisorThread)
	messages.Post("/supervisor", middleware.RateLimit(s.redis, 15, time.Minute, "send_message"), s.SendToSupervisor)
	messages.Get("/supervisor/:name", s.SupervisorRequired(), s.GetMailbox)
	messages.Post("/supervisor/:name", s.SupervisorRequired(), s.ReplyToMailbox)
	messages.Get("/peers/:name", s.GetPeerThread)
	messages.Post("/peers/:name", middleware.RateLimit(s.redis, 15, time.Minute, "send_message"), s.SendPeerMessage)

	forum := protected.Group("/forum/posts")
	forum.Get("/", s.GetForumPosts)
	forum.Post("/", middleware.RateLimit(s.redis, 5, time.Minute, "create_post"), s.CreateForumPost)
	forum.Put("/:id", s.UpdateForumPost)
	forum.Delete("/:id", s.DeleteForumPost)
	forum.Post("/:id/like", s.ToggleForumLike)
	forum.Post("/:id/comments", middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.AddForumComment)

	uploads := protected.Group("/uploads")
	uploads.Post("/image", s.UploadImage)

	notif := protected.Group("/notifications")
	notif.Get("/", s.GetNotifications)
}

func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	storeStatus := "healthy"
	if err := s.runtime.Ping(ctx); err != nil {
		storeStatus = "unhealthy"
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
	if storeStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"store": storeStatus,
			"redis": redisStatus,
		},
		"sessions": s.sessions.Len(),
		"time":     time.Now(),
	})
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      serviceName,
		BodyLimit:    int(s.encoder.MaxUploadBytes()) + 1024*1024,
		UnescapePath: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return c.Status(fiberErr.Code).JSON(models.ErrorResponse{Error: fiberErr.Message})
			}
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start wires cross-process notifications, starts the session sweeper and
// blocks serving HTTP.
func (s *Server) Start() error {
	s.app = s.App()

	if s.redis != nil {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			log.Printf("Failed to wire notification hub: %v", err)
		}
	}
	go s.sessions.Run(s.shutdownCtx, sessionSweepInterval)

	port := s.config.Port
	if port == "" {
		port = "8080"
	}
	log.Printf("Server starting on port %s", port)
	return s.app.Listen(":" + port)
}

// Shutdown stops accepting requests and closes every session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownFn()
	var err error
	if s.app != nil {
		err = s.app.ShutdownWithContext(ctx)
	}
	s.sessions.CloseAll()
	return err
}
