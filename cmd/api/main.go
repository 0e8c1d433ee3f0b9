package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/geoplane/internal/adapters/http"
	natsadapter "github.com/samirrijal/geoplane/internal/adapters/nats"
	"github.com/samirrijal/geoplane/internal/adapters/postgres"
	"github.com/samirrijal/geoplane/internal/adapters/valkey"
	"github.com/samirrijal/geoplane/internal/core/ports"
	"github.com/samirrijal/geoplane/internal/core/usecases"
	"github.com/samirrijal/geoplane/internal/pkg/auth"
	"github.com/samirrijal/geoplane/internal/pkg/config"
	"github.com/samirrijal/geoplane/internal/pkg/logging"
	"github.com/samirrijal/geoplane/internal/pkg/metrics"
	"github.com/samirrijal/geoplane/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("geoplane-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database is required; everything else degrades gracefully.
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	// NATS event publisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
		publisher = nil
	} else {
		defer publisher.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Repos
	userRepo := postgres.NewUserRepo(db)
	pointRepo := postgres.NewPointRepo(db)
	polygonRepo := postgres.NewPolygonRepo(db)

	// Use cases
	tokens := auth.NewTokenMaker(cfg.Auth.Secret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	authSvc := usecases.NewAuthService(userRepo, tokens)
	pointSvc := usecases.NewPointService(pointRepo, eventPublisher(publisher))
	polygonSvc := usecases.NewPolygonService(polygonRepo, eventPublisher(publisher))
	spatialSvc := usecases.NewSpatialService(pointRepo, polygonRepo, cacheService(cache))

	deps := &http.Dependencies{
		Auth:     authSvc,
		Points:   pointSvc,
		Polygons: polygonSvc,
		Spatial:  spatialSvc,
		NATS:     natsConn,
		DB:       db,
		Cache:    cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Geoplane API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Export DB pool stats every 15s
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// eventPublisher avoids storing a typed nil in the EventPublisher interface
// when NATS is down.
func eventPublisher(p *natsadapter.Publisher) ports.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}

// cacheService does the same for the cache.
func cacheService(c *valkey.Cache) ports.CacheService {
	if c == nil {
		return nil
	}
	return c
}
