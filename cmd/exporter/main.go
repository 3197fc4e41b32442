package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"plan-service/internal/common/config"
	"plan-service/internal/common/middleware"
	"plan-service/internal/exporter/convert"
	"plan-service/internal/exporter/handlers"
	"plan-service/internal/exporter/service"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Exporter Service
// ============================================================

func main() {
	cfg := config.Load()

	// Порядок стратегий: внешний сервис, затем локальные утилиты.
	chain := convert.NewChain(
		convert.NewRemoteService(convert.RemoteConfig{
			APIKey:       cfg.CloudConvertAPIKey,
			BaseURL:      cfg.CloudConvertBaseURL,
			PollInterval: time.Duration(cfg.PollIntervalSec) * time.Second,
			MaxPolls:     cfg.MaxPolls,
		}),
		convert.NewDXF2DWGTool(),
		convert.NewODATool(),
	)

	storage := service.NewStorage(cfg.ExportStorageRoot)

	exporter := service.NewExporter(chain, storage, service.ExporterConfig{
		DefaultScale: cfg.DefaultScale,
		CacheSize:    cfg.ExportCacheSize,
		CacheTTL:     time.Duration(cfg.ExportCacheTTL) * time.Second,
	})

	exportHandler := handlers.NewExportHandler(exporter)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Exporter Service",
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
		return c.JSON(fiber.Map{"status": "ready"})
	})

	// ============================================================
	// Exporter Routes
	// ============================================================

	app.Post("/export", exportHandler.Export)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", getEnv("PORT", "3002"))
	log.Printf("Starting Exporter Service on %s (env: %s)", addr, cfg.Environment)

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
