package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"plan-service/internal/common/config"
	"plan-service/internal/common/middleware"
	"plan-service/internal/gateway/handlers"
	"plan-service/internal/gateway/proxy"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// API Gateway
// ============================================================

func main() {
	cfg := config.Load()

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
	app.Get("/health/ready", handlers.ReadinessProbe)
	app.Get("/health/startup", handlers.StartupProbe)

	// ============================================================
	// Docs
	// ============================================================

	app.Get("/docs", handlers.SwaggerUI)
	app.Get("/docs/openapi.yaml", handlers.SwaggerSpec)

	// ============================================================
	// API Routes
	// ============================================================

	api := app.Group("/api/v1")

	api.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Plan Service API v1",
			"status":  "ok",
		})
	})

	// ============================================================
	// Service Routes (Proxy)
	// ============================================================

	// Planner Service
	plannerURL := getEnv("PLANNER_URL", "http://localhost:3001")
	api.Post("/generate", proxy.ProxyTo(plannerURL+"/generate"))
	api.Post("/validate", proxy.ProxyTo(plannerURL+"/validate"))
	api.Get("/plans", proxy.ProxyTo(plannerURL+"/plans"))
	api.Get("/plans/:id", func(c fiber.Ctx) error {
		return proxy.Forward(c, fmt.Sprintf("%s/plans/%s", plannerURL, c.Params("id")))
	})

	// Exporter Service
	exporterURL := getEnv("EXPORTER_URL", "http://localhost:3002")
	api.Post("/export", proxy.ProxyTo(exporterURL+"/export"))

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting API Gateway on %s (env: %s)", addr, cfg.Environment)
	log.Printf("Proxying /generate to %s", plannerURL)
	log.Printf("Proxying /export to %s", exporterURL)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}
