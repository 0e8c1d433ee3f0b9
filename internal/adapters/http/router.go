package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
	"github.com/samirrijal/geoplane/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Auth endpoints stay open
	auth := app.Group("/v1/auth")
	auth.Post("/register", timeout.NewWithContext(RegisterHandler(deps), 15*time.Second))
	auth.Post("/login", timeout.NewWithContext(LoginHandler(deps), 15*time.Second))

	// REST API v1: bearer token required, 15s per-request timeout
	v1 := app.Group("/v1", RequireAuth(deps))

	// Spatial queries are registered before /:id routes so "within-polygon"
	// is never parsed as a record id.
	v1.Post("/points/within-polygon", timeout.NewWithContext(PointsWithinPolygonHandler(deps), 15*time.Second))
	v1.Post("/points/nearby", timeout.NewWithContext(PointsNearbyHandler(deps), 15*time.Second))
	v1.Post("/polygons/containing-point", timeout.NewWithContext(PolygonsContainingPointHandler(deps), 15*time.Second))

	v1.Post("/points", timeout.NewWithContext(CreatePointHandler(deps), 15*time.Second))
	v1.Get("/points", timeout.NewWithContext(ListPointsHandler(deps), 15*time.Second))
	v1.Get("/points/:id", timeout.NewWithContext(GetPointHandler(deps), 15*time.Second))
	v1.Put("/points/:id", timeout.NewWithContext(UpdatePointHandler(deps), 15*time.Second))
	v1.Delete("/points/:id", timeout.NewWithContext(DeletePointHandler(deps), 15*time.Second))

	v1.Post("/polygons", timeout.NewWithContext(CreatePolygonHandler(deps), 15*time.Second))
	v1.Get("/polygons", timeout.NewWithContext(ListPolygonsHandler(deps), 15*time.Second))
	v1.Get("/polygons/:id", timeout.NewWithContext(GetPolygonHandler(deps), 15*time.Second))
	v1.Put("/polygons/:id", timeout.NewWithContext(UpdatePolygonHandler(deps), 15*time.Second))
	v1.Delete("/polygons/:id", timeout.NewWithContext(DeletePolygonHandler(deps), 15*time.Second))

	// GraphQL handles its own auth so register/login mutations work
	app.Post("/graphql", GraphQLHandler(deps))

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
