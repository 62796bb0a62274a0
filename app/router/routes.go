// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prbn021/seo-app/app/dto"
	"github.com/prbn021/seo-app/app/handlers"
	"github.com/prbn021/seo-app/app/middleware"
	"github.com/prbn021/seo-app/config"
	"github.com/prbn021/seo-app/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const healthPath = "/api/v1/health"

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Project  handlers.ProjectHandlerInterface
	Lead     handlers.LeadHandlerInterface
	Delivery handlers.DeliveryHandlerInterface
	Campaign handlers.CampaignHandlerInterface
	Audit    handlers.AuditHandlerInterface
	// Archive is nil unless archiving to Postgres is enabled
	Archive  handlers.ArchiveHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	cfg      config.ServerConfig
	metrics  config.MetricsConfig
	handlers Handlers
	logger   logrus.FieldLogger
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg config.ServerConfig, metricsCfg config.MetricsConfig, h Handlers, logger logrus.FieldLogger) *FiberRouter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("component", "router")

	bodyLimit := cfg.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 4 * 1024 * 1024 // 4MB
	}

	fiberCfg := fiber.Config{
		AppName:      "SEO App Outreach API",
		ServerHeader: "seo-app",
		ErrorHandler: newErrorHandler(logger),
		BodyLimit:    bodyLimit,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	// Without a trusted proxy list fiber would honour the proxy header from any client
	if len(cfg.TrustedProxies) > 0 {
		fiberCfg.TrustProxy = true
		fiberCfg.TrustProxyConfig = fiber.TrustProxyConfig{Proxies: cfg.TrustedProxies}
		fiberCfg.ProxyHeader = cfg.ProxyHeader
	}
	app := fiber.New(fiberCfg)

	return &FiberRouter{
		app:      app,
		cfg:      cfg,
		metrics:  metricsCfg,
		handlers: h,
		logger:   logger,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	if r.metrics.Enabled {
		path := r.metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	r.app.Get("/health", r.healthCheck)

	api := r.app.Group("/api/v1")
	api.Get("/health", r.healthCheck)

	api.Use(limiter.New(limiter.Config{
		Max:        2000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath
		},
	}))

	// Projects and their leads
	projects := api.Group("/projects")
	projects.Post("/", r.handlers.Project.Create)
	projects.Post("/prospect", r.handlers.Project.Prospect)
	projects.Get("/", r.handlers.Project.List)
	projects.Get("/:id", r.handlers.Project.Get)
	projects.Get("/:id/export", r.handlers.Project.Export)
	projects.Post("/:id/deliveries", r.handlers.Delivery.EnqueueProject)
	projects.Patch("/:id/leads/:leadId", r.handlers.Lead.UpdateDetails)
	projects.Put("/:id/leads/:leadId/status", r.handlers.Lead.UpdateStatus)
	projects.Post("/:id/leads/:leadId/move", r.handlers.Lead.Move)
	projects.Post("/:id/leads/:leadId/engagement", r.handlers.Lead.AdvanceEngagement)

	// Delivery queue
	deliveries := api.Group("/deliveries")
	deliveries.Post("/", r.handlers.Delivery.Enqueue)
	deliveries.Get("/", r.handlers.Delivery.List)
	deliveries.Post("/:id/resend", r.handlers.Delivery.Resend)

	// Campaigns
	campaigns := api.Group("/campaigns")
	campaigns.Get("/", r.handlers.Campaign.List)
	campaigns.Post("/", r.handlers.Campaign.Save)
	campaigns.Get("/:id", r.handlers.Campaign.Get)
	campaigns.Delete("/:id", r.handlers.Campaign.Delete)
	campaigns.Post("/:id/activate", r.handlers.Campaign.Activate)

	// Audit log
	api.Get("/audit-log", r.handlers.Audit.List)
	api.Delete("/audit-log", r.handlers.Audit.Clear)

	// Archived history
	if r.handlers.Archive != nil {
		archive := api.Group("/archive")
		archive.Get("/deliveries", r.handlers.Archive.ListDeliveries)
		archive.Get("/deliveries/:id", r.handlers.Archive.GetDelivery)
		archive.Get("/audit-log", r.handlers.Archive.ListAuditLog)
	}

	// Not found handler
	r.app.Use(r.notFoundHandler)

	r.logger.Info("routes configured")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Recovery must wrap everything after it
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.WithFields(logrus.Fields{
				"request_id": requestid.FromContext(c),
				"path":       c.Path(),
				"method":     c.Method(),
				"ip":         c.IP(),
				"panic":      e,
			}).Error("panic while serving request")
		},
	}))

	r.app.Use(requestid.New(requestid.Config{
		Header: utils.RequestIDHeader,
		Generator: func() string {
			return generateRequestID()
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	origins := r.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"X-Requested-With",
			utils.RequestIDHeader,
		},
		ExposeHeaders: []string{
			utils.RequestIDHeader,
			"Content-Disposition",
		},
		MaxAge: utils.CORSMaxAge,
	}))

	if r.cfg.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
		}))
	}

	r.app.Use(middleware.Metrics())
	r.app.Use(middleware.RequestLogger(r.logger, healthPath, "/health"))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.WithField("address", address).Info("starting HTTP server")
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"service":   "seo-app-outreach",
		},
	})
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

// newErrorHandler returns the global error handler for errors escaping the handlers
func newErrorHandler(logger logrus.FieldLogger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "An internal server error occurred"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}

		logger.WithError(err).WithField("status", code).Error("unhandled request error")

		return c.Status(code).JSON(dto.APIResponse{
			Success: false,
			Message: message,
			Error: dto.ErrorDetail{
				Code: "INTERNAL_ERROR",
				Details: fiber.Map{
					"timestamp":  utils.UTCNow().Unix(),
					"request_id": requestid.FromContext(c),
				},
			},
		})
	}
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
