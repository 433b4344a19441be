package main

import (
	"fmt"
	"log"
	"time"

	"building-viewer/internal/common/config"
	"building-viewer/internal/common/docs"
	"building-viewer/internal/common/middleware"
	"building-viewer/internal/gateway/handlers"
	"building-viewer/internal/gateway/proxy"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// API Gateway
// ============================================================

func main() {
	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "API Gateway",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", handlers.LivenessProbe)
	app.Get("/health/ready", handlers.ReadinessProbe(cfg.ViewerURL))
	app.Get("/health/startup", handlers.StartupProbe)

	// Описание API берётся у самого viewer, чтобы не расходилось.
	app.Get("/docs/openapi.yaml", proxy.ProxyTo(cfg.ViewerURL+"/docs/openapi.yaml"))
	if !cfg.IsProduction() {
		app.Get("/docs", docs.UI("Building Viewer API", "/docs/openapi.yaml"))
	}

	// ============================================================
	// API Routes
	// ============================================================

	api := app.Group("/api/v1")

	api.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Building Viewer API v1",
			"status":  "ok",
		})
	})

	// ============================================================
	// Service Routes (Proxy)
	// ============================================================

	// Viewer Service
	api.All("/*", proxy.Prefix(cfg.ViewerURL))

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting API Gateway on %s (env: %s)", addr, cfg.Environment)
	log.Printf("Proxying /api/v1/* to %s", cfg.ViewerURL)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
