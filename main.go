package main

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"

	"github.com/hyunwoolee/subsidy-backend/config"
	"github.com/hyunwoolee/subsidy-backend/database"
	"github.com/hyunwoolee/subsidy-backend/handlers"
	"github.com/hyunwoolee/subsidy-backend/jobs"
	"github.com/hyunwoolee/subsidy-backend/services"
	"github.com/hyunwoolee/subsidy-backend/shared"
)

func main() {
	// Load config
	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Runtime tuning: built-in defaults, then the optional JSON config
	// file, then explicit environment overrides.
	unified := shared.NewDefaultUnifiedConfiguration()
	if cfg.ConfigFile != "" {
		if data, err := os.ReadFile(cfg.ConfigFile); err != nil {
			log.Printf("Config file warning: %v", err)
		} else if err := unified.LoadFromJSON(data); err != nil {
			log.Printf("Config file warning: %v", err)
		}
	}
	if cfg.CacheTTLMinutes != "" {
		unified.Cache.DefaultTTL = cfg.GetCacheTTL()
	}
	if cfg.SyncPageSize != "" {
		unified.Sync.PageSize = cfg.GetSyncPageSize()
	}
	if cfg.SyncIntervalHrs != "" {
		unified.Sync.Interval = cfg.GetSyncInterval()
	}
	unified.ValidateAndApplyDefaults()

	if configJSON, err := unified.ToJSON(); err == nil {
		logrus.Debugf("Effective configuration: %s", configJSON)
	}

	// Connect to database
	if err := database.ConnectWithConfig(cfg.DatabaseURL, &unified.Database); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate("database/schema.sql"); err != nil {
		log.Printf("Migration warning: %v", err)
	}

	// Initialize services
	gov24Client := services.NewGov24ClientWithConfig(cfg.SubsidyAPIKey, unified.Upstream)
	subsidyService := services.NewSubsidyService(database.DB)
	syncLogService := services.NewSyncLogService(database.DB)
	searchTermService := services.NewSearchTermService(database.DB)

	cacheService := services.NewCacheServiceWithConfig(unified.Cache.DefaultTTL, unified.Cache.MaxSize)
	cachedSubsidyService := services.NewCachedSubsidyService(subsidyService, cacheService)

	syncService := services.NewSyncService(gov24Client, subsidyService, syncLogService, cachedSubsidyService)
	syncService.SetPageSize(unified.Sync.PageSize)

	runOnStartup := cfg.GetSyncOnStartup() || unified.Sync.RunOnStartup

	log.Println("Subsidy backend services initialized:")
	log.Printf("  - gov24 catalog client (page size: %d)", unified.Sync.PageSize)
	log.Printf("  - Listing cache (TTL: %v, max size: %d)", unified.Cache.DefaultTTL, unified.Cache.MaxSize)
	log.Printf("  - Scheduled sync (interval: %v, on startup: %v)", unified.Sync.Interval, runOnStartup)

	// Initialize jobs
	syncJob := jobs.NewSubsidySyncJob(syncService, gov24Client)

	// Initialize handlers
	syncHandler := handlers.NewSyncHandler(syncService, subsidyService, syncLogService, cfg.SyncSecretKey)
	subsidyHandler := handlers.NewSubsidyHandler(cachedSubsidyService, subsidyService, searchTermService, syncLogService)
	statsHandler := handlers.NewStatsHandler(database.DB, syncService, gov24Client, cachedSubsidyService)

	// Start background jobs
	go func() {
		if runOnStartup {
			// Give the database pool a moment before the first run
			time.Sleep(2 * time.Second)
			go syncJob.Run()
		}

		syncTicker := time.NewTicker(unified.Sync.Interval)
		defer syncTicker.Stop()

		for range syncTicker.C {
			syncJob.Run()
		}
	}()

	// Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := database.HealthCheck(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	// Routes
	api := app.Group("/api/v1")

	// Subsidy routes
	api.Get("/subsidies", subsidyHandler.GetSubsidies)
	api.Get("/subsidies/trending", subsidyHandler.GetTrendingSearches)
	api.Get("/subsidies/:id", subsidyHandler.GetSubsidyByID)

	// Sync routes
	api.Post("/sync", syncHandler.TriggerSync)
	api.Get("/sync", syncHandler.GetSyncStatus)

	// Operational stats
	api.Get("/stats", statsHandler.GetStats)

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
