package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"plan-service/internal/common/config"
	"plan-service/internal/common/middleware"
	"plan-service/internal/planner/geometry"
	"plan-service/internal/planner/handlers"
	"plan-service/internal/planner/llm"
	"plan-service/internal/planner/repository"
	"plan-service/internal/planner/service"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ============================================================
// Planner Service
// ============================================================

func main() {
	cfg := config.Load()

	db, err := repository.OpenSQLite(cfg.PlansDBPath)
	if err != nil {
		log.Fatalf("Failed to open plans database: %v", err)
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(context.Background(), "migrations/001_init_plans.sql"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	})

	validator := geometry.NewValidator(geometry.DefaultTolerances())

	generator := service.NewGenerator(client, validator, repo, service.GeneratorConfig{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseDelay) * time.Second,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		CacheSize:   cfg.PlanCacheSize,
		CacheTTL:    time.Duration(cfg.PlanCacheTTL) * time.Second,
	})

	planHandler := handlers.NewPlanHandler(generator, validator, repo)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Planner Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Get("/health/ready", func(c fiber.Ctx) error {
		if err := db.Ping(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready"})
		}
		return c.JSON(fiber.Map{"status": "ready"})
	})

	// ============================================================
	// Planner Routes
	// ============================================================

	app.Post("/generate", planHandler.Generate)
	app.Post("/validate", planHandler.Validate)
	app.Get("/plans", planHandler.ListPlans)
	app.Get("/plans/:id", planHandler.GetPlan)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", getEnv("PORT", "3001"))
	log.Printf("Starting Planner Service on %s (env: %s)", addr, cfg.Environment)
	log.Printf("Model: %s, attempts: %d", cfg.OpenAIModel, cfg.MaxAttempts)

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
