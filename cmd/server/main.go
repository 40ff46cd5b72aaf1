package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/saeid-a/TutorAppBack/internal/config"
	"github.com/saeid-a/TutorAppBack/internal/database"
	"github.com/saeid-a/TutorAppBack/internal/routes"
)

func main() {
	ctx := context.Background()

	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}
	if err := database.ConnectDB(ctx, cfg.DBUrl, cfg.DBMaxConns); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB()

	svc, err := routes.NewServices(cfg, database.DB)
	if err != nil {
		log.Fatalf("Failed to build services: %v", err)
	}

	// 3. Seed admin account
	if cfg.SeedAdmin() {
		created, err := svc.Accounts.EnsureAdmin(ctx, cfg.DefaultAdminName, cfg.DefaultAdminEmail, cfg.DefaultAdminPassword)
		if err != nil {
			log.Fatalf("Failed to seed admin account: %v", err)
		}
		if created {
			log.Printf("Seeded admin account %s", cfg.DefaultAdminEmail)
		}
	}

	// 4. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "TutorAppBack",
	})

	// Middleware
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
	}))
	app.Use(recover.New())

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"environment": cfg.AppEnv,
		})
	})
	if err := routes.RegisterRoutes(app, cfg, svc); err != nil {
		log.Fatalf("Failed to register routes: %v", err)
	}

	// 5. Start Server
	log.Printf("Server starting on port %s (%s)", cfg.Port, cfg.AppEnv)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
